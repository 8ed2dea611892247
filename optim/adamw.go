package optim

import (
	"errors"
	"math"

	"github.com/EricLina/sentcnn/autograd"
	"github.com/EricLina/sentcnn/tensor"
)

// AdamW implements Adam with decoupled weight decay. With weightDecay = 0 it
// is plain Adam.
type AdamW struct {
	params      []*tensor.Tensor
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64
	t           int
	m           [][]float32 // first moment
	v           [][]float32 // second moment
}

// NewAdamW creates an AdamW optimizer. params are modified in place; Step uses their Grad.
func NewAdamW(params []*tensor.Tensor, lr, beta1, beta2, eps, weightDecay float64) (*AdamW, error) {
	if len(params) == 0 {
		return nil, errors.New("adamw: no parameters")
	}
	if lr <= 0 {
		return nil, errors.New("adamw: learning rate must be positive")
	}
	if eps == 0 {
		eps = 1e-8
	}
	m := make([][]float32, len(params))
	v := make([][]float32, len(params))
	for i, p := range params {
		m[i] = make([]float32, p.NumElements())
		v[i] = make([]float32, p.NumElements())
	}
	return &AdamW{
		params:      params,
		lr:          lr,
		beta1:       beta1,
		beta2:       beta2,
		eps:         eps,
		weightDecay: weightDecay,
		m:           m,
		v:           v,
	}, nil
}

// NewAdam is Adam with betas (0.9, 0.999), eps 1e-8 and no weight decay.
func NewAdam(params []*tensor.Tensor, lr float64) (*AdamW, error) {
	return NewAdamW(params, lr, 0.9, 0.999, 1e-8, 0)
}

// ZeroGrad clears every parameter gradient before the next backward pass.
func (a *AdamW) ZeroGrad() error {
	for _, p := range a.params {
		if err := autograd.ResetGrad(p); err != nil {
			return err
		}
	}
	return nil
}

// Steps reports how many updates have been applied.
func (a *AdamW) Steps() int { return a.t }

// Step performs one parameter update. Parameters without Grad are skipped.
func (a *AdamW) Step() error {
	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i, p := range a.params {
		if p.Grad == nil {
			continue
		}
		// p -= lr * wd * p; m = b1*m + (1-b1)*g; v = b2*v + (1-b2)*g^2
		// p -= lr * m_hat / (sqrt(v_hat) + eps)
		grad := p.Grad.Float32()
		param := p.Float32()
		mF, vF := a.m[i], a.v[i]
		for j, g := range grad {
			if a.weightDecay != 0 {
				param[j] -= float32(a.lr * a.weightDecay * float64(param[j]))
			}
			mF[j] = float32(a.beta1)*mF[j] + float32(1-a.beta1)*g
			vF[j] = float32(a.beta2)*vF[j] + float32(1-a.beta2)*g*g
			mHat := float64(mF[j]) / bc1
			vHat := float64(vF[j]) / bc2
			param[j] -= float32(a.lr * mHat / (math.Sqrt(vHat) + a.eps))
		}
	}
	return nil
}
