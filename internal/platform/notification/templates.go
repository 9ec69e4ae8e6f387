package notification

import (
	"fmt"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

const (
	TemplateConfirmationPatient = "appointment-confirmation-patient"
	TemplateConfirmationDoctor  = "appointment-confirmation-doctor"
	TemplateReminder            = "appointment-reminder"
	TemplatePrescriptionReady   = "prescription-ready"
)

// Template holds the per-channel text of one notification kind. Placeholders
// use the {{key}} form.
type Template struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	SMS       string `json:"sms,omitempty"`
	PushTitle string `json:"push_title,omitempty"`
	PushBody  string `json:"push_body,omitempty"`
}

// Rendered is a template with its placeholders filled in.
type Rendered struct {
	Subject   string
	Body      string
	SMS       string
	PushTitle string
	PushBody  string
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateConfirmationPatient,
			Name:    "Appointment Confirmation",
			Subject: "Appointment Confirmation",
			Body: "Dear {{patient_name}}, your {{appointment_type}} appointment with Dr. {{doctor_name}} " +
				"at {{hospital_name}} is confirmed for {{appointment_time}}. Video link: {{video_link}}",
			SMS: "Your appointment with Dr. {{doctor_name}} is confirmed for {{appointment_time}}",
		},
		{
			ID:      TemplateConfirmationDoctor,
			Name:    "New Appointment Scheduled",
			Subject: "New Appointment Scheduled",
			Body: "Dr. {{doctor_name}}, a {{appointment_type}} appointment with {{patient_name}} is scheduled " +
				"for {{appointment_time}}. Symptoms: {{symptoms}}. Video link: {{video_link}}",
		},
		{
			ID:      TemplateReminder,
			Name:    "Appointment Reminder",
			Subject: "Appointment Reminder - {{hours_before}} hours",
			Body: "Dear {{patient_name}}, this is a reminder of your {{appointment_type}} appointment with " +
				"Dr. {{doctor_name}} at {{hospital_name}} on {{appointment_time}}.",
			SMS:       "Reminder: Your appointment with Dr. {{doctor_name}} is in {{hours_before}} hours ({{appointment_time}})",
			PushTitle: "Appointment Reminder",
			PushBody:  "Your appointment is in {{hours_before}} hours",
		},
		{
			ID:      TemplatePrescriptionReady,
			Name:    "Prescription Ready",
			Subject: "Your Prescription is Ready",
			Body: "Dear {{patient_name}}, Dr. {{doctor_name}} has issued your prescription. " +
				"Diagnosis: {{diagnosis}}. Medications: {{medications_count}}.",
			SMS:       "Your prescription from Dr. {{doctor_name}} is ready. Check your email or app for details.",
			PushTitle: "Prescription Ready",
			PushBody:  "Your prescription is now available",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (Rendered, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return Rendered{}, fmt.Errorf("template %q not found", templateID)
	}

	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)

	return Rendered{
		Subject:   r.Replace(t.Subject),
		Body:      r.Replace(t.Body),
		SMS:       r.Replace(t.SMS),
		PushTitle: r.Replace(t.PushTitle),
		PushBody:  r.Replace(t.PushBody),
	}, nil
}
