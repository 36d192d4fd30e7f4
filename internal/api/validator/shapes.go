package validator

import "github.com/getkin/kin-openapi/openapi3"

// Шаблоны строковых значений. Все параметры приходят строками.
const (
	patternPositiveInt = `^[1-9][0-9]*$`
	patternDecimal     = `^-?[0-9]+(\.[0-9]+)?$`
	patternDate        = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`
)

// shapes — объявленные формы параметров по последнему сегменту пути.
var shapes = map[string]*openapi3.Schema{
	"write": openapi3.NewObjectSchema().
		WithProperty("content", openapi3.NewStringSchema()).
		WithProperty("location", openapi3.NewStringSchema()).
		WithProperty("latitude", decimal()).
		WithProperty("longitude", decimal()).
		WithRequired([]string{"content"}).
		WithoutAdditionalProperties(),

	"update": openapi3.NewObjectSchema().
		WithProperty("id", positiveInt()).
		WithProperty("content", openapi3.NewStringSchema()).
		WithProperty("location", openapi3.NewStringSchema()).
		WithProperty("latitude", decimal()).
		WithProperty("longitude", decimal()).
		WithRequired([]string{"id", "content"}).
		WithoutAdditionalProperties(),

	"delete": openapi3.NewObjectSchema().
		WithProperty("id", positiveInt()).
		WithRequired([]string{"id"}).
		WithoutAdditionalProperties(),

	"list": openapi3.NewObjectSchema().
		WithProperty("page", positiveInt()).
		WithProperty("limit", positiveInt()).
		WithProperty("startDate", date()).
		WithProperty("endDate", date()).
		WithoutAdditionalProperties(),

	"today": openapi3.NewObjectSchema().
		WithoutAdditionalProperties(),
}

func positiveInt() *openapi3.Schema {
	return openapi3.NewStringSchema().WithPattern(patternPositiveInt)
}

func decimal() *openapi3.Schema {
	return openapi3.NewStringSchema().WithPattern(patternDecimal)
}

func date() *openapi3.Schema {
	return openapi3.NewStringSchema().WithPattern(patternDate)
}
