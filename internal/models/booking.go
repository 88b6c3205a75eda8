package models

import "time"

type ClientType string

const (
	ClientPrivate   ClientType = "private"
	ClientCorporate ClientType = "corporate"
)

type JobType string

const (
	JobCar   JobType = "car"
	JobVan   JobType = "van"
	JobOther JobType = "other"
)

type Booking struct {
	ID                   string            `json:"id"`
	RemoteID             string            `json:"remote_id,omitempty"`
	CustomerName         string            `json:"customer_name"`
	CustomerEmail        string            `json:"customer_email,omitempty"`
	CustomerPhone        string            `json:"customer_phone,omitempty"`
	Vehicle              string            `json:"vehicle,omitempty"`
	Date                 time.Time         `json:"date"`
	StartTime            string            `json:"start_time"`
	EndTime              string            `json:"end_time,omitempty"`
	PackageType          string            `json:"package_type"`
	ClientType           ClientType        `json:"client_type"`
	JobType              JobType           `json:"job_type"`
	AdditionalServiceIDs []string          `json:"additional_service_ids,omitempty"`
	Status               Status            `json:"status"`
	Staff                []string          `json:"staff,omitempty"`
	TotalPrice           float64           `json:"total_price"`
	ProgressPercentage   int               `json:"progress_percentage"`
	Tasks                []ServiceTaskItem `json:"tasks,omitempty"`
	Invoice              *Invoice          `json:"invoice,omitempty"`
	Archived             bool              `json:"archived,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	Version              int64             `json:"version"`
}

// ServiceTaskItem is one checklist line of a booking. Task items belong to
// exactly one booking and are regenerated when its package changes.
type ServiceTaskItem struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Completed     bool       `json:"completed"`
	AllocatedTime int        `json:"allocated_time"`
	ActualTime    int        `json:"actual_time,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Invoice is the billing record issued when a booking is confirmed.
// IssuedAt doubles as the at-most-once guard for invoice creation.
type Invoice struct {
	Number   string     `json:"number"`
	Amount   float64    `json:"amount"`
	Paid     bool       `json:"paid"`
	IssuedAt *time.Time `json:"issued_at,omitempty"`
}

func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	cp := *b
	if b.AdditionalServiceIDs != nil {
		cp.AdditionalServiceIDs = append([]string(nil), b.AdditionalServiceIDs...)
	}
	if b.Staff != nil {
		cp.Staff = append([]string(nil), b.Staff...)
	}
	if b.Tasks != nil {
		cp.Tasks = append([]ServiceTaskItem(nil), b.Tasks...)
	}
	if b.Invoice != nil {
		inv := *b.Invoice
		cp.Invoice = &inv
	}
	return &cp
}

// PackageTask is a catalog template from which booking task items are built.
type PackageTask struct {
	Name          string `yaml:"name" json:"name"`
	AllocatedTime int    `yaml:"allocated_time" json:"allocated_time"`
}

// ServicePackage describes one entry of the static, read-only service catalog.
type ServicePackage struct {
	Type  string        `yaml:"type" json:"type"`
	Name  string        `yaml:"name" json:"name"`
	Price float64       `yaml:"price" json:"price"`
	Tasks []PackageTask `yaml:"tasks" json:"tasks"`
}

// AdditionalService is an add-on from the static catalog, referenced by id
// from a booking.
type AdditionalService struct {
	ID    string  `yaml:"id" json:"id"`
	Name  string  `yaml:"name" json:"name"`
	Price float64 `yaml:"price" json:"price"`
}
