package model

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	tmath "github.com/crislerwin/tiny-rnn/pkg/math"
)

// randomSequence returns a window with a zero placeholder row and random values elsewhere
func randomSequence(rng *rand.Rand, rows, cols int) tmath.Matrix {
	m := tmath.NewMatrix(rows, cols)
	for t := 1; t < rows; t++ {
		for i := range m[t] {
			m[t][i] = rng.Float64()*2 - 1
		}
	}
	return m
}

// oneHotSequence returns a window of one-hot rows for the given symbols
func oneHotSequence(size int, symbols ...int) tmath.Matrix {
	m := tmath.Matrix{tmath.NewVector(size)}
	for _, s := range symbols {
		m = append(m, tmath.OneHot(size, s))
	}
	return m
}

func TestLayerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LayerConfig
		wantErr bool
	}{
		{name: "valid", cfg: LayerConfig{InputSize: 3, OutputSize: 4, WindowSize: 5, LearningRate: 0.1}},
		{name: "zero input", cfg: LayerConfig{InputSize: 0, OutputSize: 4, WindowSize: 5}, wantErr: true},
		{name: "zero output", cfg: LayerConfig{InputSize: 3, OutputSize: 0, WindowSize: 5}, wantErr: true},
		{name: "window too small", cfg: LayerConfig{InputSize: 3, OutputSize: 4, WindowSize: 1}, wantErr: true},
		{name: "negative rate", cfg: LayerConfig{InputSize: 3, OutputSize: 4, WindowSize: 5, LearningRate: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewStack_Count(t *testing.T) {
	const v, h, w = 5, 7, 6
	s, err := NewStack(StackConfig{InputSize: v, HiddenSize: h, OutputSize: v, WindowSize: w, LearningRate: 0.01}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewStack() error = %v", err)
	}

	want := (4*h*(v+h) + 4*h) + (4*h*(h+h) + 4*h) + (v*h + v)
	if got := s.Count(); got != want {
		t.Errorf("Count() = %d, want %d", got, want)
	}
	if len(s.Layers()) != 3 {
		t.Errorf("Layers() has %d entries, want 3", len(s.Layers()))
	}
}

func TestNewStack_InvalidConfig(t *testing.T) {
	_, err := NewStack(StackConfig{InputSize: 3, HiddenSize: 0, OutputSize: 3, WindowSize: 4}, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Error("NewStack() expected error for zero hidden size")
	}
}

func TestStack_ProbabilitiesValid(t *testing.T) {
	const v, h, w = 4, 8, 6
	rng := rand.New(rand.NewSource(7))
	s, err := NewStack(StackConfig{InputSize: v, HiddenSize: h, OutputSize: v, WindowSize: w, LearningRate: 0.01}, rng)
	if err != nil {
		t.Fatal(err)
	}

	for pass := 0; pass < 5; pass++ {
		input := oneHotSequence(v, rng.Intn(v), rng.Intn(v), rng.Intn(v), rng.Intn(v), rng.Intn(v))
		probs, err := s.Forward(input, pass == 0)
		if err != nil {
			t.Fatalf("Forward() error = %v", err)
		}
		if len(probs) != w {
			t.Fatalf("Forward() returned %d steps, want %d", len(probs), w)
		}
		if !probs[0].IsZero() {
			t.Errorf("placeholder output = %v, want zeros", probs[0])
		}
		for ts := 1; ts < w; ts++ {
			for i, p := range probs[ts] {
				if p < 0 {
					t.Errorf("probs[%d][%d] = %v, want non-negative", ts, i, p)
				}
			}
			if sum := probs[ts].Sum(); math.Abs(sum-1) > 1e-6 {
				t.Errorf("probs[%d] sums to %v, want 1", ts, sum)
			}
		}
	}
}

func TestLSTM_Reset(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	l, err := NewLSTM(LayerConfig{InputSize: 3, OutputSize: 5, WindowSize: 4, LearningRate: 0.01}, rng)
	if err != nil {
		t.Fatal(err)
	}
	input := randomSequence(rng, 4, 3)

	first, err := l.Forward(input, true)
	if err != nil {
		t.Fatal(err)
	}
	carried, err := l.Forward(input, false)
	if err != nil {
		t.Fatal(err)
	}
	again, err := l.Forward(input, true)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, again) {
		t.Errorf("reset forward is not reproducible: %v vs %v", first, again)
	}
	if reflect.DeepEqual(first, carried) {
		t.Error("forward without reset ignored the carried state")
	}
	if !first[0].IsZero() {
		t.Errorf("placeholder output = %v, want zeros", first[0])
	}
}

func TestLSTM_InputGradient(t *testing.T) {
	const in, hid, w = 3, 4, 5
	rng := rand.New(rand.NewSource(11))
	l, err := NewLSTM(LayerConfig{InputSize: in, OutputSize: hid, WindowSize: w}, rng)
	if err != nil {
		t.Fatal(err)
	}

	input := randomSequence(rng, w, in)
	weights := randomSequence(rng, w, hid)

	objective := func(x tmath.Matrix) float64 {
		out, err := l.Forward(x, true)
		if err != nil {
			t.Fatal(err)
		}
		sum := 0.0
		for ts := 1; ts < w; ts++ {
			for k := range out[ts] {
				sum += weights[ts][k] * out[ts][k]
			}
		}
		return sum
	}

	objective(input)
	dx, err := l.Backward(weights)
	if err != nil {
		t.Fatalf("Backward() error = %v", err)
	}

	const eps = 1e-5
	for ts := 1; ts < w; ts++ {
		for i := 0; i < in; i++ {
			x := input.Clone()
			x[ts][i] += eps
			plus := objective(x)
			x[ts][i] -= 2 * eps
			minus := objective(x)

			numeric := (plus - minus) / (2 * eps)
			if diff := math.Abs(numeric - dx[ts][i]); diff > 1e-6+1e-4*math.Abs(numeric) {
				t.Errorf("dx[%d][%d] = %v, numeric %v", ts, i, dx[ts][i], numeric)
			}
		}
	}
}

func TestSoftMax_InputGradient(t *testing.T) {
	const in, out, w = 4, 3, 4
	rng := rand.New(rand.NewSource(5))
	l, err := NewSoftMax(LayerConfig{InputSize: in, OutputSize: out, WindowSize: w}, rng)
	if err != nil {
		t.Fatal(err)
	}

	input := randomSequence(rng, w, in)
	targets := oneHotSequence(out, 2, 0, 1)

	objective := func(x tmath.Matrix) (float64, tmath.Matrix) {
		probs, err := l.Forward(x, false)
		if err != nil {
			t.Fatal(err)
		}
		loss, _, grads, err := tmath.CrossEntropy(probs, targets)
		if err != nil {
			t.Fatal(err)
		}
		return loss * float64(w-1), grads
	}

	_, grads := objective(input)
	dx, err := l.Backward(grads)
	if err != nil {
		t.Fatalf("Backward() error = %v", err)
	}

	const eps = 1e-5
	for ts := 1; ts < w; ts++ {
		for i := 0; i < in; i++ {
			x := input.Clone()
			x[ts][i] += eps
			plus, _ := objective(x)
			x[ts][i] -= 2 * eps
			minus, _ := objective(x)

			numeric := (plus - minus) / (2 * eps)
			if diff := math.Abs(numeric - dx[ts][i]); diff > 1e-6+1e-4*math.Abs(numeric) {
				t.Errorf("dx[%d][%d] = %v, numeric %v", ts, i, dx[ts][i], numeric)
			}
		}
	}
}

func TestLayers_ShapeErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cfg := LayerConfig{InputSize: 3, OutputSize: 2, WindowSize: 4, LearningRate: 0.01}
	lstm, err := NewLSTM(cfg, rng)
	if err != nil {
		t.Fatal(err)
	}
	soft, err := NewSoftMax(cfg, rng)
	if err != nil {
		t.Fatal(err)
	}

	for name, l := range map[string]Layer{"lstm": lstm, "softmax": soft} {
		t.Run(name, func(t *testing.T) {
			if _, err := l.Backward(tmath.NewMatrix(4, 2)); err == nil {
				t.Error("Backward() before Forward() expected error")
			}
			if _, err := l.Forward(tmath.NewMatrix(3, 3), true); err == nil {
				t.Error("Forward() with short window expected error")
			}
			if _, err := l.Forward(tmath.NewMatrix(4, 5), true); err == nil {
				t.Error("Forward() with wrong width expected error")
			}
			if _, err := l.Forward(randomSequence(rng, 4, 3), true); err != nil {
				t.Fatalf("Forward() error = %v", err)
			}
			if _, err := l.Backward(tmath.NewMatrix(4, 7)); err == nil {
				t.Error("Backward() with wrong width expected error")
			}
		})
	}
}

func TestStack_LearnsFixedWindow(t *testing.T) {
	const v, h, w = 3, 8, 5
	s, err := NewStack(StackConfig{InputSize: v, HiddenSize: h, OutputSize: v, WindowSize: w, LearningRate: 0.01, ClipNorm: 5}, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatal(err)
	}

	input := oneHotSequence(v, 0, 1, 2, 0)
	targets := oneHotSequence(v, 1, 2, 0, 1)

	step := func() float64 {
		probs, err := s.Forward(input, true)
		if err != nil {
			t.Fatal(err)
		}
		loss, _, grads, err := tmath.CrossEntropy(probs, targets)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Backward(grads); err != nil {
			t.Fatal(err)
		}
		return loss
	}

	first := step()
	var last float64
	for i := 0; i < 200; i++ {
		last = step()
	}
	if last >= first/2 {
		t.Errorf("loss went from %v to %v, want at least halved", first, last)
	}
}

type recordingLayer struct {
	id    int
	calls *[]string
	rate  float64
}

func (r *recordingLayer) Forward(input tmath.Matrix, reset bool) (tmath.Matrix, error) {
	*r.calls = append(*r.calls, "forward"+string(rune('0'+r.id)))
	return input, nil
}

func (r *recordingLayer) Backward(grads tmath.Matrix) (tmath.Matrix, error) {
	*r.calls = append(*r.calls, "backward"+string(rune('0'+r.id)))
	return grads, nil
}

func (r *recordingLayer) Count() int                   { return r.id * 10 }
func (r *recordingLayer) LearningRate() float64        { return r.rate }
func (r *recordingLayer) SetLearningRate(rate float64) { r.rate = rate }

func TestStack_Composition(t *testing.T) {
	var calls []string
	l1 := &recordingLayer{id: 1, calls: &calls}
	l2 := &recordingLayer{id: 2, calls: &calls}
	l3 := &recordingLayer{id: 3, calls: &calls}
	s := NewStackFromLayers(l1, l2, l3)

	if _, err := s.Forward(tmath.NewMatrix(3, 2), true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Backward(tmath.NewMatrix(3, 2)); err != nil {
		t.Fatal(err)
	}

	want := []string{"forward1", "forward2", "forward3", "backward3", "backward2", "backward1"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("call order = %v, want %v", calls, want)
	}

	if got := s.Count(); got != 60 {
		t.Errorf("Count() = %d, want 60", got)
	}

	s.SetLearningRate(0.5)
	for i, l := range s.Layers() {
		if l.LearningRate() != 0.5 {
			t.Errorf("layer %d rate = %v, want 0.5", i+1, l.LearningRate())
		}
	}
	if s.LearningRate() != 0.5 {
		t.Errorf("LearningRate() = %v, want 0.5", s.LearningRate())
	}
}
