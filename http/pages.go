package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"obesityweb/ml"
)

//go:embed templates/*.html
var templateFS embed.FS

var fieldLabels = map[string]string{
	ml.AttrGender:          "Gender",
	ml.AttrAge:             "Age (years)",
	ml.AttrHeight:          "Height (cm)",
	ml.AttrWeight:          "Weight (kg)",
	ml.AttrFamilyHistory:   "Family history of overweight",
	ml.AttrHighCaloricFood: "Frequent high calorie food",
	ml.AttrVegetables:      "Vegetables with meals",
	ml.AttrMainMeals:       "Main meals per day",
	ml.AttrSnacks:          "Food between meals",
	ml.AttrSmoking:         "Smoker",
	ml.AttrAlcohol:         "Alcohol consumption",
	ml.AttrWater:           "Water per day",
	ml.AttrMonitor:         "Monitors calorie intake",
	ml.AttrExercise:        "Physical activity",
	ml.AttrDevices:         "Time on devices per day",
	ml.AttrTransport:       "Usual transport",
}

type formField struct {
	Name    string
	Label   string
	Options []string
}

type indexPage struct {
	Fields []formField
	Values map[string]string
	Result string
	Error  string
}

type notFoundPage struct {
	Path string
}

type serverErrorPage struct {
	RequestID string
}

type pages struct {
	templates *template.Template
	fields    []formField
}

func newPages() (*pages, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	schema := ml.Schema()
	fields := make([]formField, 0, len(schema))
	for _, attr := range schema {
		field := formField{Name: attr.FormField, Label: fieldLabels[attr.Name]}
		if attr.Kind == ml.Categorical {
			field.Options = attr.Table.Values()
		}
		fields = append(fields, field)
	}
	return &pages{templates: templates, fields: fields}, nil
}

// render executes name into a buffer first so a template failure never leaves a half-written page.
func (p *pages) render(w http.ResponseWriter, status int, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (p *pages) index(values map[string]string) indexPage {
	if values == nil {
		values = map[string]string{}
	}
	return indexPage{Fields: p.fields, Values: values}
}
