package main

import (
	"fmt"
	"math"
	"os"

	"github.com/djeday123/goml-sentiment/core"
	"github.com/djeday123/goml-sentiment/nn"
	"github.com/djeday123/goml-sentiment/ops"
)

// paramReport is the worst relative error seen for one parameter.
type paramReport struct {
	name   string
	ana    float64 // first checked element
	num    float64
	maxErr float64
}

func main() {
	fmt.Println("=== Gradient Check ===")
	fmt.Println()

	// Tiny model: vocab 16, dim 8, no dropout so forward is deterministic
	cfg := nn.ClassifierConfig{VocabSize: 16, EmbeddingDim: 8, Dropout: 0, Seed: 1}
	model, err := nn.NewClassifier(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Model: %d params\n", model.CountParameters())

	// Fixed input: two sequences of four ids, one per class
	ids := []int64{1, 3, 5, 0, 7, 9, 11, 2}
	shape := core.Shape{2, 4}
	labels := []float64{1, 0}

	reports, before, err := check(model, ids, shape, labels, 1e-5, 3)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Initial loss: %.6f (expected ~%.4f = ln 2)\n", before, math.Ln2)

	fmt.Println("\n--- Numerical Gradient Check ---")
	bad := false
	for _, r := range reports {
		status := "✓"
		if r.maxErr > 0.01 {
			status = "✗ BAD"
			bad = true
		} else if r.maxErr > 0.001 {
			status = "~ OK"
		}
		fmt.Printf("%-15s: ana=%.6f num=%.6f max_err=%.6f %s\n", r.name, r.ana, r.num, r.maxErr, status)
	}

	// A single plain gradient step should reduce the loss
	fmt.Println("\n--- Single Step Test ---")
	after, err := stepAndLoss(model, ids, shape, labels, 0.1)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Loss before: %.6f\n", before)
	fmt.Printf("Loss after:  %.6f\n", after)
	if after < before {
		fmt.Println("✓ Loss decreased! Gradients are correct direction.")
	} else {
		fmt.Println("✗ Loss INCREASED! Gradient direction is wrong!")
		bad = true
	}
	if bad {
		os.Exit(1)
	}
}

func loss(model *nn.Classifier, ids []int64, shape core.Shape, labels []float64) (float64, error) {
	logits, err := model.Logits(ids, shape)
	if err != nil {
		return 0, err
	}
	l, _, err := ops.BinaryCrossEntropy(logits, labels)
	return l, err
}

// check runs one backward pass and compares the first perParam elements of
// every parameter gradient against central differences with step eps.
// Gradients are left populated for stepAndLoss.
func check(model *nn.Classifier, ids []int64, shape core.Shape, labels []float64, eps float64, perParam int) ([]paramReport, float64, error) {
	logits, cache, err := model.Forward(ids, shape, false)
	if err != nil {
		return nil, 0, err
	}
	base, dLogits, err := ops.BinaryCrossEntropy(logits, labels)
	if err != nil {
		return nil, 0, err
	}
	model.ZeroGrad()
	if err := model.Backward(cache, dLogits); err != nil {
		return nil, 0, err
	}

	var reports []paramReport
	for _, p := range model.Parameters() {
		pData := p.Data()
		gData := p.GradData()
		r := paramReport{name: p.Name}

		// Embedding rows 0..perParam-1 may be unused; check the rows the input touches.
		for j, idx := range checkIndices(p, ids, perParam) {
			original := pData[idx]

			pData[idx] = original + eps
			plus, err := loss(model, ids, shape, labels)
			if err != nil {
				return nil, 0, err
			}
			pData[idx] = original - eps
			minus, err := loss(model, ids, shape, labels)
			if err != nil {
				return nil, 0, err
			}
			pData[idx] = original

			num := (plus - minus) / (2 * eps)
			ana := gData[idx]
			relErr := math.Abs(num-ana) / (math.Abs(num) + math.Abs(ana) + 1e-8)
			r.maxErr = max(r.maxErr, relErr)
			if j == 0 {
				r.ana, r.num = ana, num
			}
		}
		reports = append(reports, r)
	}
	return reports, base, nil
}

func checkIndices(p *nn.Param, ids []int64, n int) []int {
	total := p.NumElements()
	if p.Name != "embedding" {
		return firstN(total, n)
	}
	_, dim := p.Value.Dims()
	row := int(ids[0])
	out := make([]int, 0, n)
	for k := 0; k < n && k < dim; k++ {
		out = append(out, row*dim+k)
	}
	return out
}

func firstN(total, n int) []int {
	out := make([]int, 0, n)
	for i := 0; i < n && i < total; i++ {
		out = append(out, i)
	}
	return out
}

// stepAndLoss applies p -= lr*grad to every parameter and returns the new loss.
func stepAndLoss(model *nn.Classifier, ids []int64, shape core.Shape, labels []float64, lr float64) (float64, error) {
	for _, p := range model.Parameters() {
		pData := p.Data()
		for i, g := range p.GradData() {
			pData[i] -= lr * g
		}
	}
	return loss(model, ids, shape, labels)
}
