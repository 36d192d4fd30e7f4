// Пакет respond — единый JSON-конверт ответов Diary Module.
// Успех: {"code": "success", ...payload}.
// Ошибка: {"code": "<kind>", "desc": "..."}.
// Все ответы diary-маршрутов пишутся только через этот пакет.
package respond

import (
	"encoding/json"
	"net/http"
)

// Виды результата в поле code.
const (
	CodeSuccess            = "success"
	CodeError              = "error"
	CodeIncorrectParamForm = "incorrectParamForm"
)

// Описания ошибок в поле desc.
const (
	DescUnknownToken       = "unknown token"
	DescIncorrectParamForm = "incorrect parameter form"
	DescFileWriteFail      = "file write fail"
	DescNotFound           = "diary not found"
	DescInvalidFileType    = "invalid file type"
	DescFileTooLarge       = "file too large"
)

// Payload — поля успешного ответа рядом с code.
type Payload map[string]any

// JSON записывает успешный ответ с HTTP 200.
// Поле code в payload перезаписывается.
func JSON(w http.ResponseWriter, payload Payload) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["code"] = CodeSuccess
	write(w, http.StatusOK, body)
}

// Error записывает ответ ошибки.
// statusCode — HTTP статус-код, code — вид ошибки, desc — описание.
func Error(w http.ResponseWriter, statusCode int, code, desc string) {
	write(w, statusCode, errorBody{Code: code, Desc: desc})
}

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func write(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// --- Конструкторы для типичных ошибок ---

// IncorrectParamForm — 400 параметры не соответствуют форме маршрута.
func IncorrectParamForm(w http.ResponseWriter) {
	Error(w, http.StatusBadRequest, CodeIncorrectParamForm, DescIncorrectParamForm)
}

// UnknownToken — 401 токен не найден.
func UnknownToken(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, CodeError, DescUnknownToken)
}

// NotFound — 404 запись не найдена.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, CodeError, DescNotFound)
}

// InvalidFileType — 400 файл не является изображением.
func InvalidFileType(w http.ResponseWriter) {
	Error(w, http.StatusBadRequest, CodeError, DescInvalidFileType)
}

// FileTooLarge — 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter) {
	Error(w, http.StatusRequestEntityTooLarge, CodeError, DescFileTooLarge)
}

// FileWriteFail — 500 файл не удалось записать.
func FileWriteFail(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, CodeError, DescFileWriteFail)
}

// Internal — 500 сбой хранилища; desc — текст ошибки.
func Internal(w http.ResponseWriter, desc string) {
	Error(w, http.StatusInternalServerError, CodeError, desc)
}
