package Models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"Aerofield/Ledger"
)

// Every ledger table keys rows on an auto-increment Seq so listings keep
// insertion order; the domain id is a unique uuid column.

type TaskRecord struct {
	Seq               uint    `gorm:"primaryKey"`
	ID                string  `gorm:"uniqueIndex;size:36"`
	Title             string  `gorm:"size:200"`
	Client            string  `gorm:"size:200;index"`
	Assignee          string  `gorm:"size:120;index"`
	Location          string  `gorm:"size:200"`
	TargetQuantity    float64 `gorm:"not null"`
	CompletedQuantity float64 `gorm:"not null;default:0"`
	Status            string  `gorm:"size:16;index"`
	ServiceValue      *float64
	DueDate           time.Time
	CompletedAt       *time.Time
	ForcedCompletion  bool
	Tracked           bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Progress          []ProgressRecord `gorm:"foreignKey:TaskID;references:ID;constraint:OnDelete:CASCADE"`
}

type ProgressRecord struct {
	Seq       uint   `gorm:"primaryKey"`
	ID        string `gorm:"uniqueIndex;size:36"`
	TaskID    string `gorm:"size:36;index"`
	Position  int
	Date      time.Time
	Quantity  float64
	Worker    string `gorm:"size:120;index"`
	Equipment datatypes.JSON
	Notes     string `gorm:"type:text"`
	Photos    datatypes.JSON
}

type RateRecord struct {
	Seq         uint   `gorm:"primaryKey"`
	ID          string `gorm:"uniqueIndex;size:36"`
	WorkerID    string `gorm:"size:36;index"`
	RatePerUnit float64
	StartDate   *time.Time
	EndDate     *time.Time
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

type DebtRecord struct {
	Seq             uint   `gorm:"primaryKey"`
	ID              string `gorm:"uniqueIndex;size:36"`
	ClientName      string `gorm:"size:200;index"`
	TaskID          string `gorm:"uniqueIndex;size:36"`
	Description     string `gorm:"size:200"`
	TotalAmount     float64
	PaidAmount      float64
	RemainingAmount float64
	CreatedAt       time.Time `gorm:"autoCreateTime:false"`
}

type PaymentRecord struct {
	Seq        uint   `gorm:"primaryKey"`
	ID         string `gorm:"uniqueIndex;size:36"`
	DebtID     string `gorm:"size:36;index"`
	ClientName string `gorm:"size:200"`
	Amount     float64
	Date       time.Time
}

type CashEntryRecord struct {
	Seq         uint   `gorm:"primaryKey"`
	ID          string `gorm:"uniqueIndex;size:36"`
	Type        string `gorm:"size:16;index"`
	Amount      float64
	Category    string `gorm:"size:120;index"`
	Date        time.Time
	Description string `gorm:"size:300"`
}

func taskRecord(t Ledger.Task) TaskRecord {
	rec := TaskRecord{
		ID:                t.ID,
		Title:             t.Title,
		Client:            t.Client,
		Assignee:          t.Assignee,
		Location:          t.Location,
		TargetQuantity:    t.TargetQuantity,
		CompletedQuantity: t.CompletedQuantity,
		Status:            string(t.Status),
		ServiceValue:      t.ServiceValue,
		DueDate:           t.DueDate,
		CompletedAt:       t.CompletedAt,
		ForcedCompletion:  t.ForcedCompletion,
		Tracked:           t.Tracked,
		CreatedAt:         t.CreatedAt,
	}
	for i, e := range t.Ledger {
		rec.Progress = append(rec.Progress, ProgressRecord{
			ID:        e.ID,
			TaskID:    t.ID,
			Position:  i,
			Date:      e.Date,
			Quantity:  e.Quantity,
			Worker:    e.Worker,
			Equipment: stringsJSON(e.Equipment),
			Notes:     e.Notes,
			Photos:    stringsJSON(e.Photos),
		})
	}
	return rec
}

func (r TaskRecord) toTask() Ledger.Task {
	t := Ledger.Task{
		ID:                r.ID,
		Title:             r.Title,
		Client:            r.Client,
		Assignee:          r.Assignee,
		Location:          r.Location,
		TargetQuantity:    r.TargetQuantity,
		CompletedQuantity: r.CompletedQuantity,
		Status:            Ledger.Status(r.Status),
		ServiceValue:      r.ServiceValue,
		DueDate:           r.DueDate,
		CreatedAt:         r.CreatedAt,
		CompletedAt:       r.CompletedAt,
		ForcedCompletion:  r.ForcedCompletion,
		Tracked:           r.Tracked,
		Ledger:            make([]Ledger.ProgressEntry, 0, len(r.Progress)),
	}
	for _, p := range r.Progress {
		t.Ledger = append(t.Ledger, Ledger.ProgressEntry{
			ID:        p.ID,
			Date:      p.Date,
			Quantity:  p.Quantity,
			Worker:    p.Worker,
			Equipment: jsonStrings(p.Equipment),
			Notes:     p.Notes,
			Photos:    jsonStrings(p.Photos),
		})
	}
	return t
}

func stringsJSON(v []string) datatypes.JSON {
	if len(v) == 0 {
		return nil
	}
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

func jsonStrings(j datatypes.JSON) []string {
	if len(j) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(j, &out); err != nil {
		return nil
	}
	return out
}

func rateRecord(r Ledger.WorkerRate) RateRecord {
	return RateRecord{
		ID:          r.ID,
		WorkerID:    r.WorkerID,
		RatePerUnit: r.RatePerUnit,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (r RateRecord) toRate() Ledger.WorkerRate {
	return Ledger.WorkerRate{
		ID:          r.ID,
		WorkerID:    r.WorkerID,
		RatePerUnit: r.RatePerUnit,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		UpdatedAt:   r.UpdatedAt,
	}
}

func debtRecord(d Ledger.Debt) DebtRecord {
	return DebtRecord{
		ID:              d.ID,
		ClientName:      d.ClientName,
		TaskID:          d.TaskID,
		Description:     d.Description,
		TotalAmount:     d.TotalAmount,
		PaidAmount:      d.PaidAmount,
		RemainingAmount: d.RemainingAmount,
		CreatedAt:       d.CreatedAt,
	}
}

func (r DebtRecord) toDebt() Ledger.Debt {
	return Ledger.Debt{
		ID:              r.ID,
		ClientName:      r.ClientName,
		TaskID:          r.TaskID,
		Description:     r.Description,
		TotalAmount:     r.TotalAmount,
		PaidAmount:      r.PaidAmount,
		RemainingAmount: r.RemainingAmount,
		CreatedAt:       r.CreatedAt,
	}
}

func (r PaymentRecord) toPayment() Ledger.Payment {
	return Ledger.Payment{ID: r.ID, DebtID: r.DebtID, ClientName: r.ClientName, Amount: r.Amount, Date: r.Date}
}

func (r CashEntryRecord) toCashEntry() Ledger.CashEntry {
	return Ledger.CashEntry{
		ID:          r.ID,
		Type:        Ledger.EntryType(r.Type),
		Amount:      r.Amount,
		Category:    r.Category,
		Date:        r.Date,
		Description: r.Description,
	}
}
