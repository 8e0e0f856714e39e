package models

import "time"

// MaxSlugLength est la taille maximale d'un slug en base.
const MaxSlugLength = 8

// Link représente un lien raccourci dans la base de données.
// Les tags `gorm:"..."` définissent comment GORM doit mapper cette structure à la table 'links'.
// Il n'y a pas de colonne de statut : l'état actif/expiré est calculé à la lecture à partir de ExpiresAt.
type Link struct {
	ID           uint       `gorm:"primaryKey"`                   // Clé primaire auto-incrémentée
	Slug         string     `gorm:"uniqueIndex;size:8;not null"`  // Identifiant court, unique, jamais modifié
	OriginalURL  string     `gorm:"column:original_url;not null"` // URL de destination
	CreatedAt    time.Time  `gorm:"not null"`                     // Fixé à la création, immuable
	Clicks       int64      `gorm:"not null;default:0"`           // Incrémenté uniquement par une redirection réussie
	LastAccessed *time.Time `gorm:"column:last_accessed"`         // Dernière redirection réussie
	ExpiresAt    *time.Time `gorm:"index"`                        // Date d'expiration optionnelle
}

// TableName retourne le nom de la table des liens.
func (Link) TableName() string { return "links" }

// IsExpired vérifie si le lien a expiré à l'instant now.
// Un lien sans date d'expiration n'expire jamais ; un lien dont l'expiration est
// strictement antérieure à now est expiré.
func (l *Link) IsExpired(now time.Time) bool {
	if l.ExpiresAt == nil {
		return false
	}
	return l.ExpiresAt.Before(now)
}

// Stats regroupe les statistiques publiques d'un lien.
type Stats struct {
	Clicks       int64
	CreatedAt    time.Time
	LastAccessed *time.Time
	ExpiresAt    *time.Time
}

// Stats extrait les statistiques du lien sans le modifier.
func (l *Link) Stats() Stats {
	return Stats{
		Clicks:       l.Clicks,
		CreatedAt:    l.CreatedAt,
		LastAccessed: l.LastAccessed,
		ExpiresAt:    l.ExpiresAt,
	}
}
