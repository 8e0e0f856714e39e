package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/axellelanca/quickpath/internal/errors"
	"github.com/axellelanca/quickpath/internal/models"
)

// LinkRepository est une interface qui définit les méthodes d'accès aux données des liens.
// Toutes les implémentations doivent supporter des appels concurrents.
type LinkRepository interface {
	// CreateLink insère un lien. Retourne ErrSlugConflict si le slug est déjà pris.
	CreateLink(ctx context.Context, link *models.Link) error
	// GetLinkBySlug retourne ErrLinkNotFound si aucun lien ne porte ce slug.
	GetLinkBySlug(ctx context.Context, slug string) (*models.Link, error)
	// SlugExists indique si un lien porte déjà ce slug.
	SlugExists(ctx context.Context, slug string) (bool, error)
	// RecordVisit vérifie que le lien existe et n'a pas expiré à l'instant now, puis incrémente
	// atomiquement ses clics et fixe last_accessed. Retourne le lien mis à jour.
	RecordVisit(ctx context.Context, slug string, now time.Time) (*models.Link, error)
	// Ping vérifie que la base répond.
	Ping(ctx context.Context) error
}

// GormLinkRepository est l'implémentation de LinkRepository utilisant GORM.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository crée et retourne une nouvelle instance de GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// CreateLink insère un nouveau lien dans la base de données.
// Une violation de l'index unique sur le slug est traduite en ErrSlugConflict.
func (r *GormLinkRepository) CreateLink(ctx context.Context, link *models.Link) error {
	err := r.db.WithContext(ctx).Create(link).Error
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %s", apperrors.ErrSlugConflict, link.Slug)
		}
		return err
	}
	return nil
}

// GetLinkBySlug récupère un lien par son slug.
func (r *GormLinkRepository) GetLinkBySlug(ctx context.Context, slug string) (*models.Link, error) {
	var link models.Link
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

// SlugExists compte les liens portant ce slug.
func (r *GormLinkRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Link{}).Where("slug = ?", slug).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecordVisit enregistre une redirection réussie dans une transaction.
// La ligne est lue avec SELECT ... FOR UPDATE (ignoré par SQLite qui sérialise les écritures),
// puis l'incrément est appliqué par l'expression SQL clicks = clicks + 1 : aucune visite
// concurrente ne peut être perdue. Un lien expiré n'est pas modifié.
func (r *GormLinkRepository) RecordVisit(ctx context.Context, slug string, now time.Time) (*models.Link, error) {
	var link models.Link

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("slug = ?", slug).
			First(&link).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrLinkNotFound
			}
			return err
		}

		if link.IsExpired(now) {
			return apperrors.ErrLinkExpired
		}

		result := tx.Model(&models.Link{}).
			Where("id = ?", link.ID).
			Updates(map[string]interface{}{
				"clicks":        gorm.Expr("clicks + ?", 1),
				"last_accessed": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrLinkNotFound
		}

		// Relire la ligne pour retourner la valeur réellement persistée du compteur.
		return tx.Where("id = ?", link.ID).First(&link).Error
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// Ping vérifie la connexion à la base.
func (r *GormLinkRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// isDuplicateKey reconnaît une violation d'index unique.
// Avec TranslateError GORM retourne gorm.ErrDuplicatedKey ; le message brut du driver
// sert de repli si la traduction n'est pas disponible.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
