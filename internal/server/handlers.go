// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/hlog"

	"github.com/pdiddy/docmorph/internal/convert"
	"github.com/pdiddy/docmorph/internal/document"
	"github.com/pdiddy/docmorph/internal/export"
	"github.com/pdiddy/docmorph/internal/httputil"
	"github.com/pdiddy/docmorph/internal/session"
	"github.com/pdiddy/docmorph/pkg/types"
)

// Upload bodies may exceed the document limit by this much for multipart
// framing or base64 expansion before they are refused outright.
const (
	multipartOverhead = 1 << 20
	maxJSONUpload     = document.MaxFileSize*4/3 + multipartOverhead
	maxOptionsBody    = 64 << 10
	maxInstructions   = 8000
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Formats     []types.FormatInfo
		Default     types.ConversionFormat
		MaxSizeMB   int64
		Model       string
		Version     string
		AcceptTypes string
	}{
		Formats:     formatInfos(),
		Default:     types.DefaultFormat,
		MaxSizeMB:   document.MaxFileSize >> 20,
		Model:       s.model,
		Version:     s.version,
		AcceptTypes: strings.Join([]string{".pdf", ".jpg", ".jpeg", ".png", ".webp"}, ","),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("rendering index")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"sessions":   s.sessions.Len(),
		"converting": s.sessions.Converting(),
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, formatInfos())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, s.session(w, r).Snapshot())
}

type dataURLUpload struct {
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	doc, err := readUpload(w, r)
	if err != nil {
		var verr *document.ValidationError
		if errors.As(err, &verr) {
			s.respondSessionError(w, sess.RejectFile(err))
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := sess.SelectFile(doc); err != nil {
		s.respondSessionError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sess.Snapshot())
}

// readUpload accepts either a multipart "file" field or a JSON body with a
// data URL. An oversized body is reported as a validation error so the user
// sees the size message rather than a transport failure.
func readUpload(w http.ResponseWriter, r *http.Request) (types.Document, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var up dataURLUpload
		if err := httputil.DecodeJSON(w, r, maxJSONUpload, &up); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return types.Document{}, &document.ValidationError{Message: document.MsgTooLarge}
			}
			return types.Document{}, err
		}
		mediaType, data, err := document.ParseDataURI(up.DataURL)
		if err != nil {
			return types.Document{}, err
		}
		mediaType = document.ResolveMediaType(mediaType, up.Name, head(data))
		return types.NewDocumentFromBytes(up.Name, mediaType, data), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, document.MaxFileSize+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return types.Document{}, &document.ValidationError{Message: document.MsgTooLarge}
		}
		return types.Document{}, errors.New("expected a multipart \"file\" field or a JSON data URL")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return types.Document{}, err
	}
	mediaType := document.ResolveMediaType(header.Header.Get("Content-Type"), header.Filename, head(data))
	return types.NewDocumentFromBytes(header.Filename, mediaType, data), nil
}

func head(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}

func (s *Server) handleClearFile(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := sess.ClearFile(); err != nil {
		s.respondSessionError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sess.Snapshot())
}

type optionsRequest struct {
	Format       *string `json:"format"`
	Instructions *string `json:"instructions"`
}

// Validate checks the format name and the instructions length.
func (o optionsRequest) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Format, validation.NilOrNotEmpty, validation.By(validFormat)),
		validation.Field(&o.Instructions, validation.Length(0, maxInstructions)),
	)
}

func validFormat(v any) error {
	var name string
	switch s := v.(type) {
	case *string:
		if s == nil {
			return nil
		}
		name = *s
	case string:
		name = s
	}
	if _, err := types.ParseFormat(name); err != nil {
		return errors.New("must be one of Markdown, JSON, CSV, HTML, Summary")
	}
	return nil
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	var req optionsRequest
	if err := httputil.DecodeJSON(w, r, maxOptionsBody, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if req.Format != nil {
		f, _ := types.ParseFormat(*req.Format)
		if err := sess.SetFormat(f); err != nil {
			s.respondSessionError(w, err)
			return
		}
	}
	if req.Instructions != nil {
		if err := sess.SetInstructions(*req.Instructions); err != nil {
			s.respondSessionError(w, err)
			return
		}
	}
	httputil.RespondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := sess.Convert(r.Context()); err != nil {
		s.respondSessionError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusAccepted, sess.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := sess.Reset(); err != nil {
		s.respondSessionError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	st := s.session(w, r).Snapshot()
	if st.Result == nil {
		httputil.RespondError(w, http.StatusNotFound, "no conversion result yet")
		return
	}
	w.Header().Set("Content-Type", st.Result.Format.ContentType())
	_, _ = io.WriteString(w, st.Result.Content)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	st := s.session(w, r).Snapshot()
	if st.Result == nil {
		httputil.RespondError(w, http.StatusNotFound, "no conversion result yet")
		return
	}
	res := st.Result

	if r.URL.Query().Get("as") == "xlsx" {
		if res.Format != types.FormatCSV {
			httputil.RespondError(w, http.StatusBadRequest, "workbook export is only available for CSV results")
			return
		}
		data, err := export.CSVToXLSX(res.Content)
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("workbook export failed")
			httputil.RespondError(w, http.StatusUnprocessableEntity, "the CSV result could not be converted to a workbook")
			return
		}
		w.Header().Set("Content-Type", export.ContentTypeXLSX)
		w.Header().Set("Content-Disposition", `attachment; filename="converted-document.xlsx"`)
		_, _ = w.Write(data)
		return
	}

	w.Header().Set("Content-Type", res.Format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Format.Filename()+`"`)
	_, _ = io.WriteString(w, res.Content)
}

// respondSessionError maps session and validation errors to status codes.
func (s *Server) respondSessionError(w http.ResponseWriter, err error) {
	var verr *document.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.RespondError(w, http.StatusUnprocessableEntity, verr.Message)
	case errors.Is(err, session.ErrBusy):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNoDocument):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrInvalidFormat):
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error().Err(err).Msg("session event failed")
		httputil.RespondError(w, http.StatusInternalServerError, convert.MsgUnexpected)
	}
}

func formatInfos() []types.FormatInfo {
	infos := make([]types.FormatInfo, len(types.Formats))
	for i, f := range types.Formats {
		infos[i] = f.Info()
	}
	return infos
}
