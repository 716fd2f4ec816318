package actor

// Replay folds a sequence of inputs through a reducer, returning the final
// state and the effects produced by every step in order.
//
// It does not execute effects; it exists for reducer-level tests that want to
// assert on a whole interaction rather than a single transition.
func Replay[S any](state S, reducer ReducerFunc[S], inputs ...Input) (S, []Effect) {
	var all []Effect
	for _, in := range inputs {
		var effects []Effect
		state, effects = reducer(state, in)
		all = append(all, effects...)
	}
	return state, all
}
