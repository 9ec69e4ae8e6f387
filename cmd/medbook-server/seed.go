package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medbook/medbook/internal/domain/hospital"
	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
)

type demoDoctor struct {
	identity.DoctorCreate
	hospital int // index into demoHospitals
}

var demoHospitals = []hospital.HospitalCreate{
	{
		Name:          "City General Hospital",
		Address:       "12 Park Street, Mumbai",
		LocationLat:   19.076,
		LocationLong:  72.8777,
		ContactNumber: "+912222000001",
	},
	{
		Name:          "Lakeside Heart Institute",
		Address:       "4 Lake Road, Bengaluru",
		LocationLat:   12.9716,
		LocationLong:  77.5946,
		ContactNumber: "+918022000002",
	},
}

// demoPassword is shared by every seeded doctor account.
const demoPassword = "changeme123"

var demoDoctors = []demoDoctor{
	{DoctorCreate: identity.DoctorCreate{
		Name: "Dr. Asha Rao", Email: "asha.rao@medbook.example", Password: demoPassword,
		Specialization: "General Physician", LicenseNumber: "GP-1001",
		ExperienceYears: 8, ConsultationFee: 500,
	}, hospital: 0},
	{DoctorCreate: identity.DoctorCreate{
		Name: "Dr. Vikram Shah", Email: "vikram.shah@medbook.example", Password: demoPassword,
		Specialization: "Cardiologist", LicenseNumber: "CA-2001",
		ExperienceYears: 15, ConsultationFee: 1200,
	}, hospital: 1},
	{DoctorCreate: identity.DoctorCreate{
		Name: "Dr. Meera Iyer", Email: "meera.iyer@medbook.example", Password: demoPassword,
		Specialization: "Neurologist", LicenseNumber: "NE-3001",
		ExperienceYears: 11, ConsultationFee: 1000,
	}, hospital: 0},
	{DoctorCreate: identity.DoctorCreate{
		Name: "Dr. Kabir Das", Email: "kabir.das@medbook.example", Password: demoPassword,
		Specialization: "Dermatologist", LicenseNumber: "DE-4001",
		ExperienceYears: 6, ConsultationFee: 700,
	}, hospital: 0},
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert approved demo hospitals and doctors, and optionally an admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			adminEmail, _ := cmd.Flags().GetString("admin-email")
			adminPassword, _ := cmd.Flags().GetString("admin-password")
			adminName, _ := cmd.Flags().GetString("admin-name")
			logger := newLogger()

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			a, cleanup, err := buildApp(cfg, pool, auth.NewMemoryRevocationStore(), logger)
			if err != nil {
				return err
			}
			defer cleanup()

			if adminEmail != "" {
				if _, err := a.identity.CreateAdmin(ctx, adminName, adminEmail, adminPassword); err != nil {
					if !errors.Is(err, apperr.ErrConflict) {
						return fmt.Errorf("create admin: %w", err)
					}
					fmt.Printf("Admin %s already exists.\n", adminEmail)
				} else {
					fmt.Printf("Created admin %s.\n", adminEmail)
				}
			}

			ids, err := seedHospitals(ctx, a.hospitals)
			if err != nil {
				return err
			}
			created, err := seedDoctors(ctx, a.identity, ids)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d hospital(s) and %d doctor(s).\n", len(ids), created)
			return nil
		},
	}
	cmd.Flags().String("admin-email", "", "Email of an admin account to create")
	cmd.Flags().String("admin-password", "", "Password for the admin account")
	cmd.Flags().String("admin-name", "Administrator", "Display name for the admin account")
	return cmd
}

// seedHospitals returns the ids of the demo hospitals, creating and approving
// the ones that are not listed yet.
func seedHospitals(ctx context.Context, svc *hospital.Service) ([]int64, error) {
	ids := make([]int64, 0, len(demoHospitals))
	for _, req := range demoHospitals {
		found, _, err := svc.Search(ctx, hospital.HospitalSearch{Name: req.Name}, 1, 0)
		if err != nil {
			return nil, fmt.Errorf("look up hospital %q: %w", req.Name, err)
		}
		if len(found) > 0 {
			ids = append(ids, found[0].HospitalID)
			continue
		}
		h, err := svc.Create(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("create hospital %q: %w", req.Name, err)
		}
		if _, err := svc.SetStatus(ctx, h.HospitalID, hospital.StatusApproved); err != nil {
			return nil, fmt.Errorf("approve hospital %q: %w", req.Name, err)
		}
		ids = append(ids, h.HospitalID)
	}
	return ids, nil
}

func seedDoctors(ctx context.Context, svc *identity.Service, hospitalIDs []int64) (int, error) {
	created := 0
	for _, d := range demoDoctors {
		req := d.DoctorCreate
		if d.hospital < len(hospitalIDs) {
			id := hospitalIDs[d.hospital]
			req.HospitalID = &id
		}
		doc, err := svc.RegisterDoctor(ctx, req)
		// The demo rows are well formed, so a rejection means the email is taken.
		if errors.Is(err, apperr.ErrBadInput) || errors.Is(err, apperr.ErrConflict) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("register doctor %s: %w", req.Email, err)
		}
		if _, err := svc.SetDoctorStatus(ctx, doc.DoctorID, identity.DoctorApproved); err != nil {
			return created, fmt.Errorf("approve doctor %s: %w", req.Email, err)
		}
		created++
	}
	return created, nil
}
