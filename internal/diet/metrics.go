package diet

import (
	"math/rand"
)

const (
	datasetRows  = 5000
	datasetNoise = 0.25
	datasetSeed  = 42
)

// Sample is one synthetic patient and the plan its noisy label assigned.
type Sample struct {
	Input Input
	Label Plan
}

// Generate builds n synthetic samples. Labels are the argmax of the scores
// after adding gaussian noise with the given standard deviation.
func Generate(n int, noise float64, seed int64) []Sample {
	rng := rand.New(rand.NewSource(seed))
	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		in := Input{
			Age:          18 + rng.Intn(58),
			BMI:          float64(int((16+rng.Float64()*24)*10+0.5)) / 10,
			Activity:     ActivityLevels[rng.Intn(len(ActivityLevels))],
			Diabetes:     rng.Float64() < 0.12,
			Hypertension: rng.Float64() < 0.18,
		}
		s := Scores(in)
		for j := range s {
			s[j] += rng.NormFloat64() * noise
		}
		out = append(out, Sample{Input: in, Label: argmax(s)})
	}
	return out
}

// ClassReport holds per-plan figures, shaped like a classification report.
type ClassReport struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

type Metrics struct {
	Accuracy             float64                `json:"accuracy"`
	ClassificationReport map[string]ClassReport `json:"classification_report"`
}

// Evaluate scores the noise-free model against labelled samples.
func Evaluate(samples []Sample) Metrics {
	tp := map[Plan]int{}
	predicted := map[Plan]int{}
	support := map[Plan]int{}
	correct := 0
	for _, s := range samples {
		got := Predict(s.Input).RecommendedDietPlan
		predicted[got]++
		support[s.Label]++
		if got == s.Label {
			tp[got]++
			correct++
		}
	}

	report := make(map[string]ClassReport, len(Plans)+2)
	var macro, weighted ClassReport
	for _, p := range Plans {
		r := ClassReport{Support: support[p]}
		if predicted[p] > 0 {
			r.Precision = float64(tp[p]) / float64(predicted[p])
		}
		if support[p] > 0 {
			r.Recall = float64(tp[p]) / float64(support[p])
		}
		if r.Precision+r.Recall > 0 {
			r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
		}
		report[string(p)] = r

		macro.Precision += r.Precision / float64(len(Plans))
		macro.Recall += r.Recall / float64(len(Plans))
		macro.F1 += r.F1 / float64(len(Plans))
		if len(samples) > 0 {
			w := float64(r.Support) / float64(len(samples))
			weighted.Precision += r.Precision * w
			weighted.Recall += r.Recall * w
			weighted.F1 += r.F1 * w
		}
	}
	macro.Support = len(samples)
	weighted.Support = len(samples)
	report["macro avg"] = macro
	report["weighted avg"] = weighted

	m := Metrics{ClassificationReport: report}
	if len(samples) > 0 {
		m.Accuracy = float64(correct) / float64(len(samples))
	}
	return m
}

// DefaultMetrics evaluates the model on the standard seeded dataset.
func DefaultMetrics() Metrics {
	return Evaluate(Generate(datasetRows, datasetNoise, datasetSeed))
}
