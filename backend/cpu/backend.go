package cpu

import (
	"math"
	"unsafe"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/EricLina/sentcnn/backend"
)

type cpuBackend struct{}

func init() {
	backend.Register(&cpuBackend{})
}

func (b *cpuBackend) Name() string                   { return "cpu" }
func (b *cpuBackend) DeviceType() backend.DeviceType { return backend.CPU }

func (b *cpuBackend) Alloc(byteLen int) (backend.Storage, error) {
	return Alloc(byteLen), nil
}

func (b *cpuBackend) Free(s backend.Storage) {
	if cs, ok := s.(*storage); ok {
		cs.Free()
	}
}

func (b *cpuBackend) Copy(dst, src backend.Storage, byteLen int) error {
	db := dst.(*storage).buf
	sb := src.(*storage).buf
	copy(db[:byteLen], sb[:byteLen])
	return nil
}

func floatSlice(s backend.Storage, n int) []float32 {
	if n == 0 {
		return nil
	}
	b := s.(*storage).buf
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n)
}

func int64Slice(s backend.Storage, n int) []int64 {
	if n == 0 {
		return nil
	}
	b := s.(*storage).buf
	return unsafe.Slice((*int64)(unsafe.Pointer(&b[0])), n)
}

func (b *cpuBackend) Fill(dst backend.Storage, nElems int, value float32) error {
	d := floatSlice(dst, nElems)
	for i := range d {
		d[i] = value
	}
	return nil
}

func (b *cpuBackend) Axpy(dst, src backend.Storage, nElems int, alpha float32) error {
	d := floatSlice(dst, nElems)
	x := floatSlice(src, nElems)
	for i := range d {
		d[i] += alpha * x[i]
	}
	return nil
}

func (b *cpuBackend) Relu(dst, src backend.Storage, nElems int) error {
	d := floatSlice(dst, nElems)
	x := floatSlice(src, nElems)
	for i := range d {
		if x[i] > 0 {
			d[i] = x[i]
		} else {
			d[i] = 0
		}
	}
	return nil
}

func (b *cpuBackend) ReluBackward(gradX, gradOut, x backend.Storage, nElems int) error {
	gx := floatSlice(gradX, nElems)
	g := floatSlice(gradOut, nElems)
	xv := floatSlice(x, nElems)
	for i := range gx {
		if xv[i] > 0 {
			gx[i] += g[i]
		}
	}
	return nil
}

// MatMul delegates to gonum's float32 GEMM. Operands are row-major and contiguous.
func (b *cpuBackend) MatMul(dst, a, bm backend.Storage, M, N, K int, transA, transB bool, beta float32) error {
	if M == 0 || N == 0 {
		return nil
	}
	c := blas32.General{Rows: M, Cols: N, Stride: N, Data: floatSlice(dst, M*N)}
	if K == 0 {
		for i := range c.Data {
			c.Data[i] *= beta
		}
		return nil
	}
	ta, tb := blas.NoTrans, blas.NoTrans
	ga := blas32.General{Rows: M, Cols: K, Stride: K, Data: floatSlice(a, M*K)}
	if transA {
		ta = blas.Trans
		ga = blas32.General{Rows: K, Cols: M, Stride: M, Data: ga.Data}
	}
	gb := blas32.General{Rows: K, Cols: N, Stride: N, Data: floatSlice(bm, K*N)}
	if transB {
		tb = blas.Trans
		gb = blas32.General{Rows: N, Cols: K, Stride: K, Data: gb.Data}
	}
	blas32.Gemm(ta, tb, 1, ga, gb, beta, c)
	return nil
}

func (b *cpuBackend) AddBias(dst, bias backend.Storage, rows, cols int) error {
	d := floatSlice(dst, rows*cols)
	bv := floatSlice(bias, cols)
	for r := 0; r < rows; r++ {
		row := d[r*cols : (r+1)*cols]
		for c := range row {
			row[c] += bv[c]
		}
	}
	return nil
}

func (b *cpuBackend) SumRows(dst, src backend.Storage, rows, cols int) error {
	d := floatSlice(dst, cols)
	s := floatSlice(src, rows*cols)
	for r := 0; r < rows; r++ {
		row := s[r*cols : (r+1)*cols]
		for c := range row {
			d[c] += row[c]
		}
	}
	return nil
}

func (b *cpuBackend) Embedding(dst, table, indices backend.Storage, tableRows, tableCols, nIdx int) error {
	d := floatSlice(dst, nIdx*tableCols)
	t := floatSlice(table, tableRows*tableCols)
	idx := int64Slice(indices, nIdx)
	for i, id := range idx {
		if id < 0 || int(id) >= tableRows {
			return backend.ErrUnsupported
		}
		copy(d[i*tableCols:(i+1)*tableCols], t[int(id)*tableCols:(int(id)+1)*tableCols])
	}
	return nil
}

func (b *cpuBackend) EmbeddingBackward(tableGrad, gradOut, indices backend.Storage, tableRows, tableCols, nIdx int, skip int64) error {
	tg := floatSlice(tableGrad, tableRows*tableCols)
	g := floatSlice(gradOut, nIdx*tableCols)
	idx := int64Slice(indices, nIdx)
	for i, id := range idx {
		if id == skip {
			continue
		}
		dst := tg[int(id)*tableCols : (int(id)+1)*tableCols]
		src := g[i*tableCols : (i+1)*tableCols]
		for j := range dst {
			dst[j] += src[j]
		}
	}
	return nil
}

func (b *cpuBackend) Transpose12(dst, src backend.Storage, batch, rows, cols int) error {
	n := batch * rows * cols
	d := floatSlice(dst, n)
	s := floatSlice(src, n)
	plane := rows * cols
	for bi := 0; bi < batch; bi++ {
		sp := s[bi*plane : (bi+1)*plane]
		dp := d[bi*plane : (bi+1)*plane]
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				dp[c*rows+r] = sp[r*cols+c]
			}
		}
	}
	return nil
}

func (b *cpuBackend) Conv1d(dst, x, w, bias backend.Storage, p backend.Conv1dParams) error {
	outLen := p.OutLength()
	out := floatSlice(dst, p.Batch*p.OutChannels*outLen)
	xv := floatSlice(x, p.Batch*p.InChannels*p.Length)
	wv := floatSlice(w, p.OutChannels*p.InChannels*p.Kernel)
	bv := floatSlice(bias, p.OutChannels)
	for bi := 0; bi < p.Batch; bi++ {
		xb := xv[bi*p.InChannels*p.Length:]
		for o := 0; o < p.OutChannels; o++ {
			wo := wv[o*p.InChannels*p.Kernel:]
			row := out[(bi*p.OutChannels+o)*outLen : (bi*p.OutChannels+o+1)*outLen]
			for t := range row {
				sum := bv[o]
				for c := 0; c < p.InChannels; c++ {
					xc := xb[c*p.Length : (c+1)*p.Length]
					wc := wo[c*p.Kernel : (c+1)*p.Kernel]
					for k, wk := range wc {
						pos := t + k - p.Padding
						if pos < 0 || pos >= p.Length {
							continue
						}
						sum += wk * xc[pos]
					}
				}
				row[t] = sum
			}
		}
	}
	return nil
}

func (b *cpuBackend) Conv1dBackward(gradX, gradW, gradB, gradOut, x, w backend.Storage, p backend.Conv1dParams) error {
	outLen := p.OutLength()
	g := floatSlice(gradOut, p.Batch*p.OutChannels*outLen)
	xv := floatSlice(x, p.Batch*p.InChannels*p.Length)
	wv := floatSlice(w, p.OutChannels*p.InChannels*p.Kernel)
	var gx, gw, gb []float32
	if gradX != nil {
		gx = floatSlice(gradX, p.Batch*p.InChannels*p.Length)
	}
	if gradW != nil {
		gw = floatSlice(gradW, p.OutChannels*p.InChannels*p.Kernel)
	}
	if gradB != nil {
		gb = floatSlice(gradB, p.OutChannels)
	}
	for bi := 0; bi < p.Batch; bi++ {
		base := bi * p.InChannels * p.Length
		for o := 0; o < p.OutChannels; o++ {
			grow := g[(bi*p.OutChannels+o)*outLen : (bi*p.OutChannels+o+1)*outLen]
			for t, gv := range grow {
				if gv == 0 {
					continue
				}
				if gb != nil {
					gb[o] += gv
				}
				for c := 0; c < p.InChannels; c++ {
					woff := (o*p.InChannels + c) * p.Kernel
					for k := 0; k < p.Kernel; k++ {
						pos := t + k - p.Padding
						if pos < 0 || pos >= p.Length {
							continue
						}
						xi := base + c*p.Length + pos
						if gw != nil {
							gw[woff+k] += gv * xv[xi]
						}
						if gx != nil {
							gx[xi] += gv * wv[woff+k]
						}
					}
				}
			}
		}
	}
	return nil
}

func (b *cpuBackend) MaxOverTime(dst, argmax, x backend.Storage, batch, channels, length int, lengths []int) error {
	out := floatSlice(dst, batch*channels)
	am := int64Slice(argmax, batch*channels)
	xv := floatSlice(x, batch*channels*length)
	for bi := 0; bi < batch; bi++ {
		valid := length
		if lengths != nil {
			valid = lengths[bi]
			if valid > length {
				valid = length
			}
			if valid < 1 {
				valid = 1
			}
		}
		for c := 0; c < channels; c++ {
			row := xv[(bi*channels+c)*length : (bi*channels+c)*length+valid]
			best := 0
			for t := 1; t < len(row); t++ {
				if row[t] > row[best] {
					best = t
				}
			}
			out[bi*channels+c] = row[best]
			am[bi*channels+c] = int64(best)
		}
	}
	return nil
}

func (b *cpuBackend) MaxOverTimeBackward(gradX, gradOut, argmax backend.Storage, batch, channels, length int) error {
	gx := floatSlice(gradX, batch*channels*length)
	g := floatSlice(gradOut, batch*channels)
	am := int64Slice(argmax, batch*channels)
	for i, gv := range g {
		gx[i*length+int(am[i])] += gv
	}
	return nil
}

func (b *cpuBackend) LogSoftmax(dst, src backend.Storage, rows, cols int) error {
	d := floatSlice(dst, rows*cols)
	s := floatSlice(src, rows*cols)
	for r := 0; r < rows; r++ {
		row := s[r*cols : (r+1)*cols]
		maxV := row[0]
		for _, v := range row[1:] {
			if v > maxV {
				maxV = v
			}
		}
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(float64(v - maxV))
		}
		logSumExp := maxV + float32(math.Log(sumExp))
		out := d[r*cols : (r+1)*cols]
		for j, v := range row {
			out[j] = v - logSumExp
		}
	}
	return nil
}

func (b *cpuBackend) LogSoftmaxBackward(gradX, gradOut, out backend.Storage, rows, cols int) error {
	gx := floatSlice(gradX, rows*cols)
	g := floatSlice(gradOut, rows*cols)
	o := floatSlice(out, rows*cols)
	for r := 0; r < rows; r++ {
		grow := g[r*cols : (r+1)*cols]
		var sum float32
		for _, v := range grow {
			sum += v
		}
		for j := range grow {
			i := r*cols + j
			gx[i] += grow[j] - float32(math.Exp(float64(o[i])))*sum
		}
	}
	return nil
}
