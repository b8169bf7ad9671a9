package pets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"pet-adoption/internal/apperr"
	"pet-adoption/internal/domain/access"

	"golang.org/x/sync/errgroup"
)

// StepPhotoUpload identifica el paso de fotos en errores parciales.
const StepPhotoUpload = "photo_upload"

// maxParallelUploads limita las subidas simultáneas por batch.
const maxParallelUploads = 4

var ErrNoPhotoStore = errors.New("photo store not configured")

type PhotoUpload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

// CreateWithPhotos es el flujo de alta: crea el pet y luego sube las fotos
// reemplazando la lista. Si falla el upload, el pet queda creado y se devuelve
// junto con un *apperr.PartialFailure para reintentar solo las fotos.
func (s *Service) CreateWithPhotos(ctx context.Context, caller access.Caller, in CreateInput, files []PhotoUpload) (Pet, error) {
	p, err := s.Create(ctx, caller, in)
	if err != nil {
		return Pet{}, err
	}
	if len(files) == 0 {
		return p, nil
	}

	updated, err := s.uploadAndAttach(ctx, p.ID, files, PhotosReplace)
	if err != nil {
		return p, &apperr.PartialFailure{Step: StepPhotoUpload, ResourceID: p.ID, Err: err}
	}
	return updated, nil
}

// UploadPhotos sube archivos al blob store y los asocia al pet según mode.
func (s *Service) UploadPhotos(ctx context.Context, caller access.Caller, id string, files []PhotoUpload, mode PhotoMode) (Pet, error) {
	current, err := s.loadForMutation(ctx, caller, id)
	if err != nil {
		return Pet{}, err
	}
	if len(files) == 0 {
		return current, nil
	}
	return s.uploadAndAttach(ctx, current.ID, files, mode)
}

func (s *Service) uploadAndAttach(ctx context.Context, petID string, files []PhotoUpload, mode PhotoMode) (Pet, error) {
	urls, err := s.uploadBatch(ctx, petID, files)
	if err != nil {
		return Pet{}, err
	}
	return s.attach(ctx, petID, urls, mode)
}

// uploadBatch sube en paralelo pero devuelve las URLs en el orden de entrada.
func (s *Service) uploadBatch(ctx context.Context, petID string, files []PhotoUpload) ([]string, error) {
	if s.photos == nil {
		return nil, ErrNoPhotoStore
	}

	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)

	for i, f := range files {
		g.Go(func() error {
			key, err := s.photoKey(petID, f.FileName)
			if err != nil {
				return err
			}
			url, err := s.photos.Upload(gctx, key, f.ContentType, f.Body)
			if err != nil {
				return apperr.Store(fmt.Sprintf("upload %s", f.FileName), err)
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// photoKey: pet_<id>/<unix-millis>-<random>_<nombre>. El prefijo por pet evita colisiones entre pets.
func (s *Service) photoKey(petID, fileName string) (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	name := sanitizeFileName(fileName)
	return fmt.Sprintf("pet_%s/%d-%s_%s", petID, s.now().UnixMilli(), hex.EncodeToString(b[:]), name), nil
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "photo"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
