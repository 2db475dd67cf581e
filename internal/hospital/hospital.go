// Package hospital holds the domain records the dashboard reports on.
// No business logic lives here; appointments, doctors and patients are
// managed by external systems and only read by this service.
package hospital

import "time"

type Doctor struct {
	ID        int
	FullName  string
	Specialty string
	CreatedAt time.Time
}

type Patient struct {
	ID          int
	FullName    string
	DateOfBirth time.Time
	CreatedAt   time.Time
}

type Appointment struct {
	ID          int
	DoctorID    int
	PatientID   int
	ScheduledAt time.Time
	Notes       string
	CreatedAt   time.Time
}

// Overview is what the dashboard renders for a logged-in user.
type Overview struct {
	Doctors      int
	Patients     int
	Appointments int
}
