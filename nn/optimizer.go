package nn

// Optimizer updates parameters in place from their accumulated Grad.
type Optimizer interface {
	// ZeroGrad clears the gradients of every managed parameter.
	ZeroGrad() error
	// Step applies one update.
	Step() error
}
