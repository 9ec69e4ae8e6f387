// Package diet recommends a diet plan from a few patient attributes. The
// model is a fixed additive score per plan; probabilities are a softmax over
// those scores.
package diet

import (
	"math"
	"strings"
)

type Activity string

const (
	Sedentary Activity = "Sedentary"
	Light     Activity = "Light"
	Moderate  Activity = "Moderate"
	Active    Activity = "Active"
)

// ActivityLevels in the order they are reported to clients.
var ActivityLevels = []Activity{Sedentary, Light, Moderate, Active}

type Plan string

const (
	Balanced    Plan = "Balanced"
	LowCarb     Plan = "Low-Carb"
	LowFat      Plan = "Low-Fat"
	HighProtein Plan = "High-Protein"
	Keto        Plan = "Keto"
)

// Plans is also the tie-break order: on equal scores the earlier plan wins.
var Plans = []Plan{Balanced, LowCarb, LowFat, HighProtein, Keto}

type Input struct {
	Age          int
	BMI          float64
	Activity     Activity
	Diabetes     bool
	Hypertension bool
}

type Prediction struct {
	RecommendedDietPlan Plan             `json:"RecommendedDietPlan"`
	Probabilities       map[Plan]float64 `json:"Probabilities"`
}

// Scores returns the score of every plan, indexed like Plans.
func Scores(in Input) [5]float64 {
	var s [5]float64
	add := func(p Plan, v float64) {
		for i, q := range Plans {
			if q == p {
				s[i] += v
				return
			}
		}
	}

	if in.Diabetes {
		add(LowCarb, 2.0)
		add(Keto, 1.5)
		add(LowFat, 0.5)
	}
	if in.Hypertension {
		add(LowFat, 2.0)
		add(Balanced, 0.5)
	}

	switch in.Activity {
	case Active:
		add(HighProtein, 2.0)
		add(Balanced, 0.5)
	case Moderate:
		add(Balanced, 1.0)
		add(HighProtein, 0.8)
	case Light:
		add(Balanced, 0.5)
	case Sedentary:
		add(Balanced, 0.2)
	}

	switch {
	case in.BMI >= 30:
		add(LowCarb, 1.5)
		add(LowFat, 1.0)
		add(Keto, 0.6)
	case in.BMI >= 25:
		add(LowCarb, 1.0)
		add(Balanced, 0.5)
	case in.BMI >= 18.5:
		add(Balanced, 1.0)
	default:
		add(HighProtein, 2.0)
	}

	switch {
	case in.Age >= 60:
		add(Balanced, 1.0)
	case in.Age < 25:
		add(HighProtein, 0.5)
	}
	return s
}

func argmax(s [5]float64) Plan {
	best := 0
	for i := 1; i < len(s); i++ {
		if s[i] > s[best] {
			best = i
		}
	}
	return Plans[best]
}

func softmax(s [5]float64) [5]float64 {
	hi := s[0]
	for _, v := range s[1:] {
		hi = math.Max(hi, v)
	}
	var out [5]float64
	var sum float64
	for i, v := range s {
		out[i] = math.Exp(v - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Predict is deterministic: the same input always yields the same plan.
func Predict(in Input) Prediction {
	s := Scores(in)
	p := softmax(s)
	probs := make(map[Plan]float64, len(Plans))
	for i, plan := range Plans {
		probs[plan] = p[i]
	}
	return Prediction{RecommendedDietPlan: argmax(s), Probabilities: probs}
}

// NormalizeActivity accepts a level name in any case or just its first
// letter. ok is false for anything else.
func NormalizeActivity(raw string) (Activity, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range ActivityLevels {
		if s == strings.ToLower(string(a)) {
			return a, true
		}
	}
	switch {
	case strings.HasPrefix(s, "s"):
		return Sedentary, true
	case strings.HasPrefix(s, "l"):
		return Light, true
	case strings.HasPrefix(s, "m"):
		return Moderate, true
	case strings.HasPrefix(s, "a"):
		return Active, true
	}
	return "", false
}

// Truthy reports whether v is true, or a string spelling of yes.
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true
		}
	case float64:
		return t == 1
	}
	return false
}
