package linear

// Option is a function that configures ElasticNet
type Option func(*ElasticNet)

// WithMaxIter sets the maximum number of coordinate descent sweeps
func WithMaxIter(n int) Option {
	return func(e *ElasticNet) {
		e.maxIter = n
	}
}

// WithTol sets the convergence tolerance on the maximum coefficient change
func WithTol(tol float64) Option {
	return func(e *ElasticNet) {
		e.tol = tol
	}
}

// WithFitIntercept sets whether to calculate the intercept
func WithFitIntercept(fit bool) Option {
	return func(e *ElasticNet) {
		e.fitIntercept = fit
	}
}

// WithSelection sets the coordinate update order (SelectionCyclic or SelectionRandom)
func WithSelection(selection string) Option {
	return func(e *ElasticNet) {
		e.selection = selection
	}
}

// WithRandomState seeds the shuffling used by SelectionRandom
func WithRandomState(seed int64) Option {
	return func(e *ElasticNet) {
		e.randomState = seed
	}
}
