package clustering

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Identity keeps the data as it is.
type Identity struct{}

func (Identity) Name() string {
	return "none"
}

func (Identity) Reduce(data *mat.Dense) (*mat.Dense, error) {
	return mat.DenseCopyOf(data), nil
}

// PCA projects centred data onto the fewest principal components whose
// cumulative explained variance reaches VarianceRatio.
type PCA struct {
	VarianceRatio float64
	// Components is set by the last Reduce call.
	Components int
}

func (p *PCA) Name() string {
	return "pca"
}

func (p *PCA) Reduce(data *mat.Dense) (*mat.Dense, error) {
	rows, cols := data.Dims()
	if rows < 2 {
		return nil, errors.New("pca needs at least two observations")
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, errors.New("pca: singular value decomposition failed")
	}
	vars := pc.VarsTo(nil)
	k := componentsFor(vars, p.VarianceRatio)

	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	centred := mat.DenseCopyOf(data)
	for j := range cols {
		col := mat.Col(nil, j, data)
		mean := stat.Mean(col, nil)
		for i := range rows {
			centred.Set(i, j, centred.At(i, j)-mean)
		}
	}
	var proj mat.Dense
	proj.Mul(centred, vecs.Slice(0, cols, 0, k))
	p.Components = k
	return &proj, nil
}

func componentsFor(vars []float64, ratio float64) int {
	total := floats.Sum(vars)
	if total == 0 {
		return 1
	}
	cum := 0.0
	for k, v := range vars {
		cum += v
		if cum/total >= ratio-1e-12 {
			return k + 1
		}
	}
	return len(vars)
}
