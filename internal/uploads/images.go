package uploads

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"laundry/internal/apperr"
)

const (
	MaxImageSize = 5 << 20
	profilesDir  = "uploads/profiles"
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ImageStore writes uploaded images below Root, which is served as the
// public static directory.
type ImageStore struct {
	Root string
}

func NewImageStore(root string) *ImageStore {
	if strings.TrimSpace(root) == "" {
		root = "./public"
	}
	return &ImageStore{Root: root}
}

// SaveProfileImage stores the upload and returns its path relative to Root,
// using forward slashes.
func (s *ImageStore) SaveProfileImage(file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", apperr.Validation("image is required")
	}
	extension := strings.ToLower(filepath.Ext(file.Filename))
	wantMIME, ok := allowedExtensions[extension]
	if !ok {
		return "", apperr.Validation("image must be a jpg, png or webp file")
	}
	if file.Size > MaxImageSize {
		return "", apperr.Validation("image file too large (max 5MB)")
	}

	in, err := file.Open()
	if err != nil {
		return "", apperr.Internal(err)
	}
	defer in.Close()

	detected, err := mimetype.DetectReader(in)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if !detected.Is(wantMIME) {
		return "", apperr.Validation("image content does not match its extension")
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return "", apperr.Internal(err)
	}

	dir := filepath.Join(s.Root, filepath.FromSlash(profilesDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Internal(err)
	}

	filename := uuid.NewString() + extension
	fullPath := filepath.Join(dir, filename)
	out, err := os.Create(fullPath)
	if err != nil {
		return "", apperr.Internal(err)
	}

	written, err := io.Copy(out, io.LimitReader(in, MaxImageSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > MaxImageSize {
		err = apperr.Validation("image file too large (max 5MB)")
	}
	if err != nil {
		_ = os.Remove(fullPath)
		return "", err
	}

	return path.Join(profilesDir, filename), nil
}

// Delete removes a previously stored upload. Missing files are not an
// error; paths outside uploads/ are refused.
func (s *ImageStore) Delete(relPath string) error {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(trimmed, "/")), "/")
	if !strings.HasPrefix(cleanRel, "uploads/") {
		return fmt.Errorf("refusing to delete non-upload path: %s", relPath)
	}

	base, err := filepath.Abs(s.Root)
	if err != nil {
		return err
	}
	target := filepath.Clean(filepath.Join(base, filepath.FromSlash(cleanRel)))
	if !strings.HasPrefix(target, base+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside public root: %s", relPath)
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
