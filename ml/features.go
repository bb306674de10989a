package ml

import (
	"golang.org/x/text/cases"
)

// Kind distinguishes attributes parsed as numbers from those resolved through an encoding table.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Attribute names, in the order the classifier was trained on.
const (
	AttrGender          = "Gender"
	AttrAge             = "Age"
	AttrHeight          = "Height"
	AttrWeight          = "Weight"
	AttrFamilyHistory   = "FamilyHistory"
	AttrHighCaloricFood = "HighCaloricFood"
	AttrVegetables      = "Vegetables"
	AttrMainMeals       = "MainMeals"
	AttrSnacks          = "Snacks"
	AttrSmoking         = "Smoking"
	AttrAlcohol         = "Alcohol"
	AttrWater           = "Water"
	AttrMonitor         = "Monitor"
	AttrExercise        = "Exercise"
	AttrDevices         = "Devices"
	AttrTransport       = "Transport"
)

// Attribute is one entry of the feature definition.
type Attribute struct {
	Name      string
	FormField string
	Kind      Kind
	Table     *EncodingTable
}

// EncodingTable maps the accepted values of one categorical attribute to integer codes.
// The code of a value is its position in the table.
type EncodingTable struct {
	values []string
	codes  map[string]int
	folded map[string]int
}

// NewEncodingTable builds a table whose codes follow the order of values.
func NewEncodingTable(values ...string) *EncodingTable {
	t := &EncodingTable{
		values: append([]string(nil), values...),
		codes:  make(map[string]int, len(values)),
		folded: make(map[string]int, len(values)),
	}
	for i, v := range values {
		t.codes[v] = i
		t.folded[fold(v)] = i
	}
	return t
}

// Code resolves value to its code. An exact match wins; otherwise the case-folded form is tried.
func (t *EncodingTable) Code(value string) (int, bool) {
	if code, ok := t.codes[value]; ok {
		return code, true
	}
	code, ok := t.folded[fold(value)]
	return code, ok
}

// Values returns the accepted values ordered by code.
func (t *EncodingTable) Values() []string {
	return append([]string(nil), t.values...)
}

func (t *EncodingTable) Len() int {
	return len(t.values)
}

// a Caser is stateful, so each call gets its own
func fold(s string) string {
	return cases.Fold().String(s)
}

var (
	binaryTable    = NewEncodingTable("no", "yes")
	frequencyTable = NewEncodingTable("no", "sometimes", "frequently", "always")
)

var schema = []Attribute{
	{Name: AttrGender, FormField: "gender", Kind: Categorical, Table: NewEncodingTable("Female", "Male")},
	{Name: AttrAge, FormField: "age", Kind: Numeric},
	{Name: AttrHeight, FormField: "height", Kind: Numeric},
	{Name: AttrWeight, FormField: "weight", Kind: Numeric},
	{Name: AttrFamilyHistory, FormField: "family", Kind: Categorical, Table: binaryTable},
	{Name: AttrHighCaloricFood, FormField: "high_calorie", Kind: Categorical, Table: binaryTable},
	{Name: AttrVegetables, FormField: "vegetables", Kind: Categorical, Table: NewEncodingTable("never", "sometimes", "always")},
	{Name: AttrMainMeals, FormField: "main_meals", Kind: Categorical, Table: NewEncodingTable("1-2", "3", "more than 3")},
	{Name: AttrSnacks, FormField: "snacks", Kind: Categorical, Table: frequencyTable},
	{Name: AttrSmoking, FormField: "smoke", Kind: Categorical, Table: binaryTable},
	{Name: AttrAlcohol, FormField: "alcohol", Kind: Categorical, Table: frequencyTable},
	{Name: AttrWater, FormField: "water", Kind: Categorical, Table: NewEncodingTable("1-2L", "more than 2L")},
	{Name: AttrMonitor, FormField: "monitor", Kind: Categorical, Table: binaryTable},
	{Name: AttrExercise, FormField: "exercise", Kind: Categorical, Table: NewEncodingTable("none", "1-2 days", "2-4 days", "4-5 days", "almost every day")},
	{Name: AttrDevices, FormField: "devices", Kind: Categorical, Table: NewEncodingTable("0-2 hours", "3-5 hours", "more than 5 hours")},
	{Name: AttrTransport, FormField: "transport", Kind: Categorical, Table: NewEncodingTable("car", "motorcycle", "public", "walking")},
}

// FeatureCount is the length of every feature vector.
var FeatureCount = len(schema)

// Schema returns the feature definition in training order.
func Schema() []Attribute {
	return append([]Attribute(nil), schema...)
}

// FeatureNames returns the attribute names in training order.
func FeatureNames() []string {
	names := make([]string, len(schema))
	for i, attr := range schema {
		names[i] = attr.Name
	}
	return names
}

// LookupAttribute finds an attribute by name.
func LookupAttribute(name string) (Attribute, bool) {
	for _, attr := range schema {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}
