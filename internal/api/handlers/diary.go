// diary.go — HTTP handlers маршрутов /diary.
// Параметры уже проверены middleware.ParamForm и лежат в контексте запроса.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/api/middleware"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/api/respond"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/api/validator"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/domain/model"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/media"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/service"
)

// FileField — поле multipart-формы с прикреплённым файлом.
const FileField = "diaryFile"

// DiaryService — операции с записями, которые вызывают обработчики.
type DiaryService interface {
	Write(ctx context.Context, token string, in service.EntryInput) (*model.DiaryEntry, error)
	List(ctx context.Context, token string, in service.ListInput) (*service.ListResult, error)
	Today(ctx context.Context, token string) (*service.TodayResult, error)
	Update(ctx context.Context, token string, id int64, in service.EntryInput) error
	Delete(ctx context.Context, token string, id int64) error
}

// DiaryHandler — обработчик маршрутов /diary.
type DiaryHandler struct {
	svc    DiaryService
	logger *slog.Logger
}

// NewDiaryHandler создаёт обработчик маршрутов /diary.
func NewDiaryHandler(svc DiaryService, logger *slog.Logger) *DiaryHandler {
	return &DiaryHandler{
		svc:    svc,
		logger: logger.With(slog.String("component", "diary_handler")),
	}
}

// Write обрабатывает POST /diary/write.
func (h *DiaryHandler) Write(w http.ResponseWriter, r *http.Request) {
	params := validator.FromContext(r.Context())

	in, file, err := entryInput(r, params)
	if err != nil {
		respond.IncorrectParamForm(w)
		return
	}
	if file != nil {
		defer file.Close()
	}

	if _, err := h.svc.Write(r.Context(), token(r), in); err != nil {
		h.writeError(w, r, err)
		return
	}

	respond.JSON(w, respond.Payload{"desc": "completed write diary"})
}

// List обрабатывает GET /diary/list.
// Параметры: page, limit, startDate, endDate (YYYY-MM-DD), все необязательны.
func (h *DiaryHandler) List(w http.ResponseWriter, r *http.Request) {
	values := validator.FromContext(r.Context()).Values()

	var (
		page, limit        *int
		startDate, endDate *openapi_types.Date
	)
	if err := runtime.BindQueryParameter("form", true, false, "page", values, &page); err != nil {
		respond.IncorrectParamForm(w)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", values, &limit); err != nil {
		respond.IncorrectParamForm(w)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "startDate", values, &startDate); err != nil {
		respond.IncorrectParamForm(w)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "endDate", values, &endDate); err != nil {
		respond.IncorrectParamForm(w)
		return
	}

	in := service.ListInput{}
	if page != nil {
		in.Page = *page
	}
	if limit != nil {
		in.Limit = *limit
	}
	if startDate != nil {
		in.StartDate = &startDate.Time
	}
	if endDate != nil {
		in.EndDate = &endDate.Time
	}

	res, err := h.svc.List(r.Context(), token(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respond.JSON(w, respond.Payload{
		"list":  nonNil(res.List),
		"total": res.TotalPages,
		"stamp": res.Stamps,
	})
}

// Today обрабатывает GET /diary/today.
func (h *DiaryHandler) Today(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Today(r.Context(), token(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respond.JSON(w, respond.Payload{
		"list":  nonNil(res.List),
		"stamp": res.Stamps,
	})
}

// Update обрабатывает POST /diary/update.
func (h *DiaryHandler) Update(w http.ResponseWriter, r *http.Request) {
	params := validator.FromContext(r.Context())

	id, err := strconv.ParseInt(params["id"], 10, 64)
	if err != nil {
		respond.IncorrectParamForm(w)
		return
	}

	in, file, err := entryInput(r, params)
	if err != nil {
		respond.IncorrectParamForm(w)
		return
	}
	if file != nil {
		defer file.Close()
	}

	if err := h.svc.Update(r.Context(), token(r), id, in); err != nil {
		h.writeError(w, r, err)
		return
	}

	respond.JSON(w, respond.Payload{"desc": "completed update diary"})
}

// Delete обрабатывает POST /diary/delete.
func (h *DiaryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(validator.FromContext(r.Context())["id"], 10, 64)
	if err != nil {
		respond.IncorrectParamForm(w)
		return
	}

	if err := h.svc.Delete(r.Context(), token(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	respond.JSON(w, respond.Payload{"desc": "completed delete diary"})
}

// writeError записывает конверт ошибки по виду err.
func (h *DiaryHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownToken):
		respond.UnknownToken(w)
	case errors.Is(err, service.ErrNotFound):
		respond.NotFound(w)
	case errors.Is(err, media.ErrInvalidType):
		respond.InvalidFileType(w)
	case errors.Is(err, media.ErrTooLarge):
		respond.FileTooLarge(w)
	case errors.Is(err, media.ErrWrite):
		h.logger.Error("Ошибка записи файла",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		respond.FileWriteFail(w)
	default:
		h.logger.Error("Ошибка обработки запроса",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		respond.Internal(w, err.Error())
	}
}

// entryInput собирает поля записи и прикреплённый файл.
// Непереданные location/latitude/longitude остаются nil.
// Возвращённый файл закрывает вызывающий.
func entryInput(r *http.Request, params validator.Params) (service.EntryInput, multipart.File, error) {
	in := service.EntryInput{Content: params["content"]}
	if loc, ok := params["location"]; ok {
		in.Location = &loc
	}

	var err error
	if in.Latitude, err = optionalFloat(params["latitude"]); err != nil {
		return in, nil, err
	}
	if in.Longitude, err = optionalFloat(params["longitude"]); err != nil {
		return in, nil, err
	}

	if r.MultipartForm == nil {
		return in, nil, nil
	}

	file, header, err := r.FormFile(FileField)
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, err
	}

	in.File = &media.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}
	return in, file, nil
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func token(r *http.Request) string {
	return r.Header.Get(middleware.TokenHeader)
}

func nonNil(list []*model.DiaryEntry) []*model.DiaryEntry {
	if list == nil {
		return []*model.DiaryEntry{}
	}
	return list
}
