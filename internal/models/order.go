package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Only StatutValide participates in the stock transition rules; imports may
// store other literal status values.
const (
	StatutBrouillon = "BROUILLON"
	StatutEnAttente = "EN_ATTENTE"
	StatutValide    = "VALIDE"
	StatutAnnule    = "ANNULE"
)

type Order struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	Reference      string     `gorm:"size:50;uniqueIndex;not null" json:"reference"`
	ClientID       *string    `gorm:"type:uuid;index" json:"clientId"`
	OpportuniteID  *string    `gorm:"type:uuid" json:"opportuniteId"`
	Type           string     `gorm:"size:50" json:"type"`
	Statut         string     `gorm:"size:30" json:"statut"`
	DateCreation   time.Time  `json:"dateCreation"`
	DateValidation *time.Time `json:"dateValidation"`

	Lignes []OrderLine `gorm:"constraint:OnDelete:CASCADE" json:"lignes"`

	Totaux OrderTotals `gorm:"embedded;embeddedPrefix:total_" json:"totaux"`

	Conditions *OrderConditions `gorm:"constraint:OnDelete:CASCADE" json:"conditions"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type OrderLine struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	OrderID        string  `gorm:"type:uuid;index;not null" json:"-"`
	ProduitID      *string `gorm:"type:uuid" json:"produitId"`
	Quantite       int     `gorm:"not null" json:"quantite"`
	PrixUnitaireHT float64 `json:"prixUnitaireHT"`
	Remise         float64 `json:"remise"`
	TotalHT        float64 `json:"totalHT"`
}

type OrderTotals struct {
	TotalHT  float64 `json:"totalHT"`
	TotalTVA float64 `json:"totalTVA"`
	TotalTTC float64 `json:"totalTTC"`
}

type OrderConditions struct {
	ID                uint   `gorm:"primaryKey" json:"-"`
	OrderID           string `gorm:"type:uuid;uniqueIndex;not null" json:"-"`
	DelaiLivraison    int    `json:"delaiLivraison"`
	ModalitesPaiement string `gorm:"size:100" json:"modalitesPaiement"`
	ValiditeDevis     int    `json:"validiteDevis"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.DateCreation.IsZero() {
		o.DateCreation = time.Now()
	}
	return nil
}
