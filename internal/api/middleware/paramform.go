package middleware

import (
	"errors"
	"net/http"

	"github.com/giseoplee/tiptap-mobile-api-server/internal/api/respond"
	"github.com/giseoplee/tiptap-mobile-api-server/internal/api/validator"
)

// ParamForm пропускает запрос дальше только при параметрах, соответствующих
// форме маршрута. Проверенные параметры кладутся в контекст запроса.
// Тело читается не больше maxBody байт (maxBody <= 0 — без ограничения):
// превышение отклоняется до записи multipart-формы во временные файлы.
func ParamForm(maxBody int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBody > 0 && r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBody)
			}

			params, err := validator.Check(r)
			if err != nil {
				if errors.Is(err, validator.ErrBodyTooLarge) {
					respond.FileTooLarge(w)
					return
				}
				respond.IncorrectParamForm(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(validator.WithParams(r.Context(), params)))
		})
	}
}
