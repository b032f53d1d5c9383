package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"labhub/internal/api"
	"labhub/internal/attachset"
	"labhub/internal/config"
	"labhub/internal/models"
)

const (
	formImages         = "lab_images"
	formVideo          = "lab_video"
	formPodcast        = "lab_podcast"
	formImagesToDelete = "imagesToDelete"
	formVideoToDelete  = "videoToDelete"
	formAudioToDelete  = "audioToDelete"
)

type uploadPolicy struct {
	maxBodyBytes int64
	maxMemory    int64
	maxImages    int
	allowed      []string
}

func newUploadPolicy(p UploadPolicy) uploadPolicy {
	policy := uploadPolicy{
		maxBodyBytes: p.MaxBodyBytes,
		maxMemory:    p.MultipartMaxMemory,
		maxImages:    p.MaxImages,
	}
	if policy.maxBodyBytes <= 0 {
		policy.maxBodyBytes = config.DefaultMediaMaxUploadBytes
	}
	if policy.maxMemory <= 0 {
		policy.maxMemory = config.DefaultMediaMultipartMaxMemory
	}
	if policy.maxImages <= 0 {
		policy.maxImages = config.DefaultMediaMaxImages
	}
	raw := p.AllowedMediaTypes
	if len(raw) == 0 {
		raw = config.DefaultAllowedMediaTypes
	}
	for _, value := range raw {
		if mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(value)); err == nil {
			policy.allowed = append(policy.allowed, strings.ToLower(mediaType))
		}
	}
	return policy
}

// allows reports whether the sniffed type (or one of its parents) is allowed.
func (p uploadPolicy) allows(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		for _, allowed := range p.allowed {
			if m.Is(allowed) {
				return true
			}
		}
	}
	return false
}

func (s *Server) handleListLabs(w http.ResponseWriter, r *http.Request) {
	labs, err := s.labService.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := make([]api.Lab, 0, len(labs))
	for _, lab := range labs {
		resp = append(resp, api.LabFromModel(lab))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLab(w http.ResponseWriter, r *http.Request) {
	code, ok := s.pathCodeOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	lab, err := s.labService.Get(r.Context(), code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LabFromModel(lab))
}

func (s *Server) handleCreateLab(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseLabForm(w, r)
	if !ok {
		return
	}
	uploads, closeAll, err := s.openUploads(form)
	defer closeAll()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	lab, err := s.labService.Create(r.Context(), labFieldsFromForm(form), uploads, s.disambiguator())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.LabFromModel(lab))
}

func (s *Server) handleUpdateLab(w http.ResponseWriter, r *http.Request) {
	code, ok := s.pathCodeOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	form, ok := s.parseLabForm(w, r)
	if !ok {
		return
	}
	uploads, closeAll, err := s.openUploads(form)
	defer closeAll()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	lab, err := s.labService.Update(r.Context(), code, UpdateLabInput{
		Fields:         labFieldsFromForm(form),
		Uploads:        uploads,
		ImagesToDelete: form.Value[formImagesToDelete],
		DeleteVideo:    formFlag(form, formVideoToDelete),
		DeletePodcast:  formFlag(form, formAudioToDelete),
	}, s.disambiguator())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LabFromModel(lab))
}

func (s *Server) handleDeleteLab(w http.ResponseWriter, r *http.Request) {
	code, ok := s.pathCodeOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	if err := s.labService.Delete(r.Context(), code); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteLabImage(w http.ResponseWriter, r *http.Request) {
	code, ok := s.pathCodeOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	var req api.DeleteImageRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("image is required"), ErrCodeMissingRequired))
		return
	}

	lab, err := s.labService.RemoveMedia(r.Context(), code, models.MediaImage, req.Image)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LabFromModel(lab))
}

func (s *Server) handleDeleteLabMedia(w http.ResponseWriter, r *http.Request) {
	code, ok := s.pathCodeOrBadRequest(w, r, "id")
	if !ok {
		return
	}
	var req api.DeleteMediaRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	kind, err := models.ParseMediaKind(req.MediaType)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidMediaKind))
		return
	}

	lab, err := s.labService.RemoveMedia(r.Context(), code, kind, req.MediaURL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LabFromModel(lab))
}

func (s *Server) parseLabForm(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploads.maxBodyBytes)
	if err := r.ParseMultipartForm(s.uploads.maxMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return nil, false
	}
	return r.MultipartForm, true
}

// openUploads checks every file against the policy before any is handed
// to the media store. The returned close func is always safe to call.
func (s *Server) openUploads(form *multipart.Form) (UploadSet, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	var set UploadSet
	if form == nil {
		return set, closeAll, nil
	}

	limits := []struct {
		field string
		max   int
		dst   *[]Upload
	}{
		{formImages, s.uploads.maxImages, &set.Images},
		{formVideo, 1, &set.Video},
		{formPodcast, 1, &set.Podcast},
	}
	for _, limit := range limits {
		headers := form.File[limit.field]
		if len(headers) > limit.max {
			return UploadSet{}, closeAll, badRequestCode(fmt.Errorf("at most %d file(s) allowed for %s", limit.max, limit.field), ErrCodeTooManyFiles)
		}
		for _, header := range headers {
			file, err := header.Open()
			if err != nil {
				return UploadSet{}, closeAll, badRequestCode(fmt.Errorf("open %s: %w", header.Filename, err), ErrCodeInvalidMultipart)
			}
			opened = append(opened, file)

			if err := s.checkUpload(file, header.Filename); err != nil {
				return UploadSet{}, closeAll, err
			}
			*limit.dst = append(*limit.dst, Upload{Filename: header.Filename, Content: file})
		}
	}
	return set, closeAll, nil
}

func (s *Server) checkUpload(file multipart.File, filename string) error {
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return badRequestCode(fmt.Errorf("read %s: %w", filename, err), ErrCodeInvalidMultipart)
	}
	if !s.uploads.allows(detected) {
		return badRequestCode(fmt.Errorf("%s: media type %s is not allowed", filename, detected.String()), ErrCodeUnsupportedMedia)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return internalError(fmt.Errorf("rewind %s: %w", filename, err))
	}
	return nil
}

func labFieldsFromForm(form *multipart.Form) LabFields {
	return LabFields{
		Name:        formValue(form, "lab_name"),
		Description: formValue(form, "lab_description"),
		Objectives:  formItems(form, "lab_objectives"),
		Projects:    formItems(form, "lab_proyects"),
	}
}

func formValue(form *multipart.Form, key string) string {
	if form == nil || len(form.Value[key]) == 0 {
		return ""
	}
	return strings.TrimSpace(form.Value[key][0])
}

// formItems accepts either one delimited string or repeated values.
func formItems(form *multipart.Form, key string) []string {
	if form == nil {
		return nil
	}
	var items []string
	for _, raw := range form.Value[key] {
		items = append(items, attachset.Decode(raw)...)
	}
	return items
}

func formFlag(form *multipart.Form, key string) bool {
	value := formValue(form, key)
	if value == "" {
		return false
	}
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeFileTooLarge)
	}
	return badRequestCode(err, ErrCodeInvalidMultipart)
}

func (s *Server) disambiguator() string {
	return strconv.FormatInt(s.now().UnixMilli(), 10)
}
