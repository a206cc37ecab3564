// Package Photos stores progress photos on disk, downscaled to a bounded size
// with a small thumbnail next to each one.
package Photos

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const thumbSize = 320

var (
	ErrNotAnImage = errors.New("upload is not a supported image")
	ErrBadPath    = errors.New("invalid photo path")

	safeSegment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

type Store struct {
	Dir     string
	MaxSize int
}

func NewStore(dir string, maxSize int) *Store {
	return &Store{Dir: dir, MaxSize: maxSize}
}

// Save decodes the upload, fits it inside MaxSize x MaxSize and writes it as
// JPEG under <Dir>/<taskID>/. The returned path is relative to Dir.
func (s *Store) Save(taskID, entryID string, r io.Reader) (string, error) {
	if !safeSegment.MatchString(taskID) || !safeSegment.MatchString(entryID) {
		return "", ErrBadPath
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	b := img.Bounds()
	if b.Dx() > s.MaxSize || b.Dy() > s.MaxSize {
		img = imaging.Fit(img, s.MaxSize, s.MaxSize, imaging.Lanczos)
	}

	dir := filepath.Join(s.Dir, taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create photo dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.jpg", entryID, uuid.NewString()[:8])
	if err := imaging.Save(img, filepath.Join(dir, name), imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("save photo: %w", err)
	}

	thumb := imaging.Thumbnail(img, thumbSize, thumbSize, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(dir, ThumbName(name))); err != nil {
		// the full-size photo is usable without its thumbnail
		log.WithError(err).WithField("photo", name).Warn("thumbnail not saved")
	}

	return filepath.ToSlash(filepath.Join(taskID, name)), nil
}

// ThumbName is the thumbnail file name for a stored photo.
func ThumbName(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)] + "_thumb" + ext
}

// Remove deletes a stored photo and its thumbnail.
func (s *Store) Remove(rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Remove(ThumbName(full)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", ErrBadPath
	}
	return filepath.Join(s.Dir, clean), nil
}
