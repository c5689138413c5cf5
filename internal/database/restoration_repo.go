package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/darkroomhq/darkroom/pkg/types"
)

// Restoration is one processed photo: the stored file names of each
// pipeline artifact plus the inferred metadata.
type Restoration struct {
	ID               string         `json:"id"`
	OriginalFilename string         `json:"original_filename"`
	UploadFile       string         `json:"upload_file"`
	CroppedFile      string         `json:"cropped_file"`
	RestoredFile     string         `json:"restored_file"`
	VideoFile        string         `json:"video_file,omitempty"`
	Metadata         types.Metadata `json:"metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}

// NewRestoration creates a Restoration with a fresh id.
func NewRestoration(originalFilename, uploadFile, croppedFile, restoredFile string, metadata types.Metadata) *Restoration {
	return &Restoration{
		ID:               uuid.New().String(),
		OriginalFilename: originalFilename,
		UploadFile:       uploadFile,
		CroppedFile:      croppedFile,
		RestoredFile:     restoredFile,
		Metadata:         metadata,
		CreatedAt:        time.Now().UTC(),
	}
}

// RestorationRepository reads and writes restorations.
type RestorationRepository struct {
	db *DB
}

// NewRestorationRepository creates a repository over db.
func NewRestorationRepository(db *DB) *RestorationRepository {
	return &RestorationRepository{db: db}
}

// Insert stores a restoration.
func (r *RestorationRepository) Insert(rest *Restoration) error {
	metadataJSON, err := json.Marshal(rest.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = r.db.conn.Exec(`
		INSERT INTO restorations (id, original_filename, upload_file, cropped_file, restored_file, video_file, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rest.ID, rest.OriginalFilename, rest.UploadFile, rest.CroppedFile,
		rest.RestoredFile, rest.VideoFile, string(metadataJSON), rest.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert restoration: %w", err)
	}
	return nil
}

// GetByID fetches one restoration.
func (r *RestorationRepository) GetByID(id string) (*Restoration, error) {
	row := r.db.conn.QueryRow(`
		SELECT id, original_filename, upload_file, cropped_file, restored_file, video_file, metadata, created_at
		FROM restorations WHERE id = ?`, id)

	rest, err := scanRestoration(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("restoration %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restoration: %w", err)
	}
	return rest, nil
}

// List returns restorations, newest first.
func (r *RestorationRepository) List(limit int) ([]*Restoration, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.conn.Query(`
		SELECT id, original_filename, upload_file, cropped_file, restored_file, video_file, metadata, created_at
		FROM restorations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list restorations: %w", err)
	}
	defer rows.Close()

	var restorations []*Restoration
	for rows.Next() {
		rest, err := scanRestoration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan restoration: %w", err)
		}
		restorations = append(restorations, rest)
	}
	return restorations, rows.Err()
}

// SetVideo records the generated video file for a restoration.
func (r *RestorationRepository) SetVideo(id, videoFile string) error {
	res, err := r.db.conn.Exec(`UPDATE restorations SET video_file = ? WHERE id = ?`, videoFile, id)
	if err != nil {
		return fmt.Errorf("failed to update restoration: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("restoration %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestoration(row rowScanner) (*Restoration, error) {
	var rest Restoration
	var metadataJSON string

	err := row.Scan(&rest.ID, &rest.OriginalFilename, &rest.UploadFile, &rest.CroppedFile,
		&rest.RestoredFile, &rest.VideoFile, &metadataJSON, &rest.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(metadataJSON), &rest.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &rest, nil
}
