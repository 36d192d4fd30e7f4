// Пакет validator — проверка параметров diary-маршрутов по объявленным формам.
// Набор параметров берётся из первого непустого источника:
// тело запроса (urlencoded, multipart или плоский JSON), параметры маршрута, query.
package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

// MaxMultipartMemory — объём multipart-формы в памяти, остальное во временных файлах.
const MaxMultipartMemory = 32 << 20

// MaxFormOverhead — запас на текстовые поля и границы multipart сверх размера файла.
const MaxFormOverhead = 1 << 20

// Ошибки проверки параметров.
var (
	// ErrUnknownShape — для маршрута не объявлена форма параметров.
	ErrUnknownShape = errors.New("форма параметров не объявлена")
	// ErrMismatch — параметры не соответствуют форме.
	ErrMismatch = errors.New("параметры не соответствуют форме")
	// ErrBodyTooLarge — тело запроса превышает лимит http.MaxBytesReader.
	ErrBodyTooLarge = errors.New("тело запроса превышает лимит")
)

var errNestedValue = errors.New("вложенные значения не поддерживаются")

// Params — набор параметров запроса.
type Params map[string]string

// Values возвращает параметры в виде url.Values.
func (p Params) Values() url.Values {
	v := make(url.Values, len(p))
	for k, s := range p {
		v.Set(k, s)
	}
	return v
}

type paramsKey struct{}

// WithParams сохраняет проверенные параметры в контексте.
func WithParams(ctx context.Context, p Params) context.Context {
	return context.WithValue(ctx, paramsKey{}, p)
}

// FromContext возвращает параметры, сохранённые WithParams.
func FromContext(ctx context.Context) Params {
	p, _ := ctx.Value(paramsKey{}).(Params)
	if p == nil {
		return Params{}
	}
	return p
}

// ShapeName возвращает имя формы для пути: последний сегмент без завершающего "/".
func ShapeName(urlPath string) string {
	trimmed := strings.TrimRight(urlPath, "/")
	if trimmed == "" {
		return ""
	}
	return path.Base(trimmed)
}

// Check собирает параметры и проверяет их по форме маршрута.
// Причина отказа: ErrUnknownShape, ErrBodyTooLarge или ErrMismatch
// (в том числе для нечитаемого тела).
func Check(r *http.Request) (Params, error) {
	schema, found := shapes[ShapeName(r.URL.Path)]
	if !found {
		return nil, ErrUnknownShape
	}

	params, err := Collect(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: %d", ErrBodyTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %v", ErrMismatch, err)
	}

	doc := make(map[string]any, len(params))
	for k, v := range params {
		doc[k] = v
	}
	if err := schema.VisitJSON(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMismatch, err)
	}
	return params, nil
}

// Collect возвращает первый непустой источник параметров.
func Collect(r *http.Request) (Params, error) {
	body, err := bodyParams(r)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		return body, nil
	}

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		route := Params{}
		for i, key := range rctx.URLParams.Keys {
			if key == "" || key == "*" || i >= len(rctx.URLParams.Values) {
				continue
			}
			route[key] = rctx.URLParams.Values[i]
		}
		if len(route) > 0 {
			return route, nil
		}
	}

	return first(r.URL.Query()), nil
}

func bodyParams(r *http.Request) (Params, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return nil, nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, fmt.Errorf("content type: %w", err)
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(MaxMultipartMemory); err != nil {
			return nil, fmt.Errorf("multipart: %w", err)
		}
		return first(r.MultipartForm.Value), nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("form: %w", err)
		}
		return first(r.PostForm), nil
	case "application/json":
		return jsonParams(r)
	default:
		return nil, nil
	}
}

// jsonParams разбирает плоский JSON-объект, скалярные значения приводятся к строкам.
func jsonParams(r *http.Request) (Params, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}

	params := make(Params, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			params[k] = val
		case json.Number:
			params[k] = val.String()
		case bool:
			params[k] = fmt.Sprint(val)
		default:
			return nil, fmt.Errorf("%s: %w", k, errNestedValue)
		}
	}
	return params, nil
}

func first(values map[string][]string) Params {
	params := make(Params, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}
