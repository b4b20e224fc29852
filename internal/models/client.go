package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Client struct {
	ID              string  `gorm:"type:uuid;primaryKey" json:"id"`
	Reference       string  `gorm:"size:50;uniqueIndex;not null" json:"reference"`
	Type            string  `gorm:"size:50;not null" json:"type"`
	RaisonSociale   string  `gorm:"size:150;not null" json:"raisonSociale"`
	Siret           *string `gorm:"size:20" json:"siret"`
	FormeJuridique  *string `gorm:"size:50" json:"formeJuridique"`
	Effectif        *int    `json:"effectif"`
	SecteurActivite *string `gorm:"size:100" json:"secteurActivite"`

	AdresseFacturation BillingAddress `gorm:"embedded;embeddedPrefix:facturation_" json:"adresseFacturation"`

	Contacts []ClientContact `gorm:"constraint:OnDelete:CASCADE" json:"contacts"`

	InformationsCommerciales CommercialInfo `gorm:"embedded;embeddedPrefix:commercial_" json:"informationsCommerciales"`

	Contrats []ClientContract `gorm:"constraint:OnDelete:CASCADE" json:"contrats"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type BillingAddress struct {
	Adresse    string `gorm:"size:200" json:"adresse"`
	CodePostal string `gorm:"size:10" json:"codePostal"`
	Ville      string `gorm:"size:100" json:"ville"`
	Pays       string `gorm:"size:100" json:"pays"`
}

type ClientContact struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ClientID  string `gorm:"type:uuid;index;not null" json:"-"`
	Nom       string `gorm:"size:100" json:"nom"`
	Prenom    string `gorm:"size:100" json:"prenom"`
	Fonction  string `gorm:"size:100" json:"fonction"`
	Email     string `gorm:"size:150" json:"email"`
	Telephone string `gorm:"size:30" json:"telephone"`
	Statut    string `gorm:"size:30" json:"statut"`
}

type CommercialInfo struct {
	Source                string     `gorm:"size:100" json:"source"`
	DateAcquisition       *time.Time `json:"dateAcquisition"`
	CommercialResponsable *string    `gorm:"type:uuid" json:"commercialResponsable"`
	ChiffreAffaireCumule  float64    `json:"chiffreAffaireCumule"`
	DernierAchat          *time.Time `json:"dernierAchat"`
}

type ClientContract struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ClientID  string     `gorm:"type:uuid;index;not null" json:"-"`
	Reference string     `gorm:"size:50" json:"reference"`
	Type      string     `gorm:"size:50" json:"type"`
	DateDebut *time.Time `json:"dateDebut"`
	DateFin   *time.Time `json:"dateFin"`
	Montant   float64    `json:"montant"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
