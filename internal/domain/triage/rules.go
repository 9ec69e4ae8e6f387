package triage

import "strings"

const DefaultSpecialization = "General Physician"

type rule[T any] struct {
	keyword string
	value   T
}

// Order matters: the first keyword found in the text decides.
var specializationRules = []rule[string]{
	{"heart", "Cardiologist"},
	{"chest", "Cardiologist"},
	{"cardiac", "Cardiologist"},
	{"head", "Neurologist"},
	{"brain", "Neurologist"},
	{"nerve", "Neurologist"},
	{"stomach", "Gastroenterologist"},
	{"digest", "Gastroenterologist"},
	{"gut", "Gastroenterologist"},
	{"bone", "Orthopedist"},
	{"joint", "Orthopedist"},
	{"muscle", "Orthopedist"},
	{"skin", "Dermatologist"},
	{"rash", "Dermatologist"},
	{"child", "Pediatrician"},
	{"baby", "Pediatrician"},
	{"kid", "Pediatrician"},
	{"eye", "Ophthalmologist"},
	{"vision", "Ophthalmologist"},
	{"see", "Ophthalmologist"},
	{"ear", "ENT Specialist"},
	{"nose", "ENT Specialist"},
	{"throat", "ENT Specialist"},
	{"teeth", "Dentist"},
	{"tooth", "Dentist"},
	{"mental", "Psychiatrist"},
	{"depress", "Psychiatrist"},
	{"anxiety", "Psychiatrist"},
	{"cancer", "Oncologist"},
	{"tumor", "Oncologist"},
}

var urgencyRules = []rule[Urgency]{
	{"emergency", UrgencyEmergency},
	{"severe", UrgencyHigh},
	{"critical", UrgencyHigh},
	{"pain", UrgencyHigh},
	{"bleeding", UrgencyHigh},
	{"broken", UrgencyHigh},
	{"fracture", UrgencyHigh},
	{"moderate", UrgencyMedium},
	{"mild", UrgencyLow},
	{"routine", UrgencyLow},
}

const (
	adviceEmergency = "This appears to be an emergency. Please go to the nearest emergency room or call emergency services immediately."
	adviceHigh      = "Your symptoms suggest a condition that requires prompt medical attention. Please schedule an appointment as soon as possible."
	adviceRoutine   = "Please schedule an appointment with a specialist."
	adviceGeneric   = "Please consult with a doctor for proper diagnosis"
)

func firstMatch[T any](text string, rules []rule[T], def T) T {
	for _, r := range rules {
		if strings.Contains(text, r.keyword) {
			return r.value
		}
	}
	return def
}

// Classify runs the keyword rules over symptoms. RecommendedDoctors is left
// empty; the service fills it from the doctor directory.
func Classify(symptoms string) Result {
	text := strings.ToLower(symptoms)
	urgency := firstMatch(text, urgencyRules, UrgencyMedium)
	return Result{
		SuggestedSpecialization: firstMatch(text, specializationRules, DefaultSpecialization),
		Urgency:                 urgency,
		RecommendedDoctors:      []int64{},
		Advice:                  Advice(urgency),
	}
}

func Advice(u Urgency) string {
	switch u {
	case UrgencyEmergency:
		return adviceEmergency
	case UrgencyHigh:
		return adviceHigh
	default:
		return adviceRoutine
	}
}

// genericResult is returned when the AI service answers with a non-success status.
func genericResult() *Result {
	return &Result{
		SuggestedSpecialization: DefaultSpecialization,
		Urgency:                 UrgencyMedium,
		RecommendedDoctors:      []int64{},
		Advice:                  adviceGeneric,
	}
}
