package triage

import "testing"

func TestClassify_Specialization(t *testing.T) {
	tests := []struct {
		symptoms string
		want     string
	}{
		{"Chest tightness after climbing stairs", "Cardiologist"},
		{"Terrible HEADACHE since morning", "Neurologist"},
		{"upset stomach and bloating", "Gastroenterologist"},
		{"stiff joint in my knee", "Orthopedist"},
		{"itchy rash on arms", "Dermatologist"},
		{"my baby has a fever", "Pediatrician"},
		{"blurred vision", "Ophthalmologist"},
		{"sore throat", "ENT Specialist"},
		{"tooth sensitivity", "Dentist"},
		{"feeling anxiety all the time", "Psychiatrist"},
		{"worried about a tumor", "Oncologist"},
		{"general tiredness", "General Physician"},
		{"", "General Physician"},
		// first rule in order wins, even over a later, more specific keyword
		{"heart racing and skin flushing", "Cardiologist"},
		{"my kid hurt his head", "Neurologist"},
		// plain substring matching
		{"I can't sleep", "General Physician"},
		{"nosebleed", "ENT Specialist"},
	}
	for _, tt := range tests {
		if got := Classify(tt.symptoms).SuggestedSpecialization; got != tt.want {
			t.Errorf("Classify(%q) specialization = %q, want %q", tt.symptoms, got, tt.want)
		}
	}
}

func TestClassify_Urgency(t *testing.T) {
	tests := []struct {
		symptoms string
		want     Urgency
	}{
		{"this is an emergency", UrgencyEmergency},
		{"severe cough", UrgencyHigh},
		{"sharp pain in back", UrgencyHigh},
		{"bleeding gums", UrgencyHigh},
		{"possible fracture", UrgencyHigh},
		{"moderate fever", UrgencyMedium},
		{"mild itch", UrgencyLow},
		{"routine checkup", UrgencyLow},
		{"cough", UrgencyMedium},
		{"mild but severe", UrgencyHigh},
		{"EMERGENCY with mild pain", UrgencyEmergency},
	}
	for _, tt := range tests {
		if got := Classify(tt.symptoms).Urgency; got != tt.want {
			t.Errorf("Classify(%q) urgency = %s, want %s", tt.symptoms, got, tt.want)
		}
	}
}

func TestClassify_AdviceByTier(t *testing.T) {
	if got := Classify("emergency").Advice; got != adviceEmergency {
		t.Errorf("unexpected emergency advice %q", got)
	}
	if got := Classify("severe").Advice; got != adviceHigh {
		t.Errorf("unexpected high advice %q", got)
	}
	if got := Classify("mild").Advice; got != adviceRoutine {
		t.Errorf("unexpected low advice %q", got)
	}
	if got := Classify("cough").Advice; got != adviceRoutine {
		t.Errorf("unexpected medium advice %q", got)
	}
}

func TestClassify_EmptyRecommendations(t *testing.T) {
	r := Classify("heart")
	if r.RecommendedDoctors == nil || len(r.RecommendedDoctors) != 0 {
		t.Errorf("expected an empty, non-nil list, got %v", r.RecommendedDoctors)
	}
}
