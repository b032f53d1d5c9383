package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"labhub/internal/attachset"
	"labhub/internal/mediastore"
	"labhub/internal/metrics"
	"labhub/internal/models"
	"labhub/internal/qrcode"
	"labhub/internal/store"
)

// ErrLabNotFound is returned when an operation targets a missing lab_code.
var ErrLabNotFound = errors.New("lab not found")

// LabFields are the free-text columns of a lab.
type LabFields struct {
	Name        string
	Description string
	Objectives  []string
	Projects    []string
}

// Upload is one submitted file.
type Upload struct {
	Filename string
	Content  io.Reader
}

// UploadSet groups uploads by form field. Only the first video and podcast are used.
type UploadSet struct {
	Images  []Upload
	Video   []Upload
	Podcast []Upload
}

// UpdateLabInput describes a full-row update with attachment edits.
type UpdateLabInput struct {
	Fields         LabFields
	Uploads        UploadSet
	ImagesToDelete []string
	DeleteVideo    bool
	DeletePodcast  bool
}

// LabService keeps lab rows and media files in step.
type LabService struct {
	store   store.LabStore
	media   mediastore.MediaStore
	qr      *qrcode.Generator
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewLabService constructs a LabService. qr and m may be nil.
func NewLabService(labStore store.LabStore, media mediastore.MediaStore, qr *qrcode.Generator, m *metrics.Metrics, logger *slog.Logger) *LabService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LabService{store: labStore, media: media, qr: qr, metrics: m, logger: logger}
}

// Create stores the uploads, inserts the row and renders its QR code.
func (s *LabService) Create(ctx context.Context, fields LabFields, uploads UploadSet, disambiguator string) (models.Lab, error) {
	lab, err := s.create(ctx, fields, uploads, disambiguator)
	s.metrics.RecordLabOperation("create", err)
	return lab, err
}

func (s *LabService) create(ctx context.Context, fields LabFields, uploads UploadSet, disambiguator string) (models.Lab, error) {
	var zero models.Lab
	if err := s.ready(); err != nil {
		return zero, err
	}
	fields = normalizeLabFields(fields)
	if fields.Name == "" {
		return zero, badRequestCode(fmt.Errorf("lab_name is required"), ErrCodeMissingRequired)
	}

	lab := models.Lab{
		Name:        fields.Name,
		Description: fields.Description,
		Objectives:  fields.Objectives,
		Projects:    fields.Projects,
	}

	images, err := s.storeAll(ctx, models.MediaImage, uploads.Images, disambiguator)
	if err != nil {
		return zero, err
	}
	lab.Images = images
	if lab.Video, err = s.storeFirst(ctx, models.MediaVideo, uploads.Video, disambiguator); err != nil {
		return zero, err
	}
	if lab.Podcast, err = s.storeFirst(ctx, models.MediaPodcast, uploads.Podcast, disambiguator); err != nil {
		return zero, err
	}

	code, name, err := s.store.InsertLab(ctx, &lab)
	if err != nil {
		return zero, storeFailure(err)
	}
	lab.Code = code
	lab.Name = name

	s.writeQR(code, name)
	return lab, nil
}

// Update applies deletions, then additions, then replaces the row.
func (s *LabService) Update(ctx context.Context, code int64, in UpdateLabInput, disambiguator string) (models.Lab, error) {
	lab, err := s.update(ctx, code, in, disambiguator)
	s.metrics.RecordLabOperation("update", err)
	return lab, err
}

func (s *LabService) update(ctx context.Context, code int64, in UpdateLabInput, disambiguator string) (models.Lab, error) {
	var zero models.Lab
	if err := s.ready(); err != nil {
		return zero, err
	}

	current, err := s.store.GetLab(ctx, code)
	if err != nil {
		return zero, storeFailure(err)
	}
	if current == nil {
		return zero, labNotFound()
	}

	images := append([]string(nil), current.Images...)
	video := current.Video
	podcast := current.Podcast

	for _, ref := range in.ImagesToDelete {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		var found bool
		if images, found = attachset.Remove(images, ref); !found {
			continue
		}
		s.unlink(ctx, models.MediaImage, ref)
	}
	if in.DeleteVideo && video != "" {
		s.unlink(ctx, models.MediaVideo, video)
		video = ""
	}
	if in.DeletePodcast && podcast != "" {
		s.unlink(ctx, models.MediaPodcast, podcast)
		podcast = ""
	}

	added, err := s.storeAll(ctx, models.MediaImage, in.Uploads.Images, disambiguator)
	if err != nil {
		return zero, err
	}
	images = append(images, added...)

	newVideo, err := s.storeFirst(ctx, models.MediaVideo, in.Uploads.Video, disambiguator)
	if err != nil {
		return zero, err
	}
	if newVideo != "" {
		video = newVideo
	}
	newPodcast, err := s.storeFirst(ctx, models.MediaPodcast, in.Uploads.Podcast, disambiguator)
	if err != nil {
		return zero, err
	}
	if newPodcast != "" {
		podcast = newPodcast
	}

	fields := normalizeLabFields(in.Fields)
	updated, err := s.store.ReplaceLab(ctx, code, &models.Lab{
		Name:        fields.Name,
		Description: fields.Description,
		Objectives:  fields.Objectives,
		Projects:    fields.Projects,
		Images:      images,
		Video:       video,
		Podcast:     podcast,
	})
	if err != nil {
		return zero, storeFailure(err)
	}
	if updated == nil {
		return zero, labNotFound()
	}
	return *updated, nil
}

// Delete removes dependent rows, unlinks every referenced file and deletes the row.
func (s *LabService) Delete(ctx context.Context, code int64) error {
	err := s.delete(ctx, code)
	s.metrics.RecordLabOperation("delete", err)
	return err
}

func (s *LabService) delete(ctx context.Context, code int64) error {
	if err := s.ready(); err != nil {
		return err
	}

	if err := s.store.DeleteAttendanceForLab(ctx, code); err != nil {
		return storeFailure(err)
	}
	if err := s.store.DeleteFollowersForLab(ctx, code); err != nil {
		return storeFailure(err)
	}

	lab, err := s.store.GetLab(ctx, code)
	if err != nil {
		return storeFailure(err)
	}
	if lab == nil {
		return labNotFound()
	}

	for _, kind := range models.MediaKinds() {
		for _, ref := range lab.References()[kind] {
			s.unlink(ctx, kind, ref)
		}
	}

	deleted, err := s.store.DeleteLab(ctx, code)
	if err != nil {
		return storeFailure(err)
	}
	if !deleted {
		return labNotFound()
	}

	if s.qr != nil {
		if err := s.qr.Remove(code); err != nil {
			s.logger.Warn("remove lab qr", "lab_code", code, "error", err)
		}
	}
	return nil
}

// Get returns one lab.
func (s *LabService) Get(ctx context.Context, code int64) (models.Lab, error) {
	var zero models.Lab
	if err := s.ready(); err != nil {
		return zero, err
	}
	lab, err := s.store.GetLab(ctx, code)
	if err != nil {
		return zero, storeFailure(err)
	}
	if lab == nil {
		return zero, labNotFound()
	}
	return *lab, nil
}

// List returns every lab ordered by code.
func (s *LabService) List(ctx context.Context) ([]models.Lab, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	labs, err := s.store.ListLabs(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	if labs == nil {
		labs = []models.Lab{}
	}
	return labs, nil
}

// RemoveMedia drops one reference from a lab. For video and podcast the
// stored reference is cleared; reference is only checked when given.
func (s *LabService) RemoveMedia(ctx context.Context, code int64, kind models.MediaKind, reference string) (models.Lab, error) {
	lab, err := s.removeMedia(ctx, code, kind, reference)
	s.metrics.RecordLabOperation("remove_media", err)
	return lab, err
}

func (s *LabService) removeMedia(ctx context.Context, code int64, kind models.MediaKind, reference string) (models.Lab, error) {
	var zero models.Lab
	if err := s.ready(); err != nil {
		return zero, err
	}
	if !models.IsValidMediaKind(kind) {
		return zero, mediaFailure(fmt.Errorf("%w: %s", mediastore.ErrUnsupportedMediaKind, kind))
	}
	reference = strings.TrimSpace(reference)

	lab, err := s.store.GetLab(ctx, code)
	if err != nil {
		return zero, storeFailure(err)
	}
	if lab == nil {
		return zero, labNotFound()
	}

	removed := ""
	switch kind {
	case models.MediaImage:
		if reference == "" {
			return zero, badRequestCode(fmt.Errorf("image reference is required"), ErrCodeMissingRequired)
		}
		var found bool
		if lab.Images, found = attachset.Remove(lab.Images, reference); found {
			removed = reference
		}
	case models.MediaVideo:
		if lab.Video != "" && (reference == "" || reference == lab.Video) {
			removed = lab.Video
			lab.Video = ""
		}
	case models.MediaPodcast:
		if lab.Podcast != "" && (reference == "" || reference == lab.Podcast) {
			removed = lab.Podcast
			lab.Podcast = ""
		}
	}
	if removed == "" {
		return *lab, nil
	}

	updated, err := s.store.ReplaceLab(ctx, code, lab)
	if err != nil {
		return zero, storeFailure(err)
	}
	if updated == nil {
		return zero, labNotFound()
	}
	s.unlink(ctx, kind, removed)
	return *updated, nil
}

func (s *LabService) ready() error {
	if s == nil || s.store == nil || s.media == nil {
		return internalError(fmt.Errorf("lab service is not configured"))
	}
	return nil
}

func (s *LabService) storeAll(ctx context.Context, kind models.MediaKind, uploads []Upload, disambiguator string) ([]string, error) {
	refs := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		ref, err := s.storeOne(ctx, kind, upload, disambiguator)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *LabService) storeFirst(ctx context.Context, kind models.MediaKind, uploads []Upload, disambiguator string) (string, error) {
	if len(uploads) == 0 {
		return "", nil
	}
	return s.storeOne(ctx, kind, uploads[0], disambiguator)
}

func (s *LabService) storeOne(ctx context.Context, kind models.MediaKind, upload Upload, disambiguator string) (string, error) {
	if upload.Content == nil {
		return "", badRequestCode(fmt.Errorf("%s upload %q has no content", kind, upload.Filename), ErrCodeInvalidMultipart)
	}
	if mediastore.SanitizeName(upload.Filename) == "" {
		return "", badRequestCode(fmt.Errorf("%s upload has no file name", kind), ErrCodeInvalidMultipart)
	}
	counter := &countingReader{r: upload.Content}
	ref, err := s.media.Store(ctx, kind, upload.Filename, disambiguator, counter)
	s.metrics.RecordMediaStore(string(kind), counter.n, err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", internalError(err)
		}
		return "", mediaFailure(err)
	}
	return ref, nil
}

// unlink removes a file best-effort; failures are logged and counted only.
func (s *LabService) unlink(ctx context.Context, kind models.MediaKind, reference string) {
	err := s.media.Remove(ctx, kind, reference)
	s.metrics.RecordMediaRemove(string(kind), err)
	if err != nil {
		s.logger.Warn("unlink media", "kind", kind, "reference", reference, "error", err)
	}
}

func (s *LabService) writeQR(code int64, name string) {
	if s.qr == nil {
		return
	}
	if _, err := s.qr.Write(code, qrcode.Payload(code, name)); err != nil {
		s.metrics.RecordQRFailure()
		s.logger.Error("write lab qr", "lab_code", code, "error", err)
	}
}

func labNotFound() error {
	return notFoundCode(ErrLabNotFound, ErrCodeLabNotFound)
}

func normalizeLabFields(fields LabFields) LabFields {
	return LabFields{
		Name:        strings.TrimSpace(fields.Name),
		Description: strings.TrimSpace(fields.Description),
		Objectives:  trimItems(fields.Objectives),
		Projects:    trimItems(fields.Projects),
	}
}

func trimItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
