package ml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemaOrder(t *testing.T) {
	require.Equal(t, 16, FeatureCount)
	require.Equal(t, []string{
		"Gender", "Age", "Height", "Weight", "FamilyHistory", "HighCaloricFood", "Vegetables", "MainMeals",
		"Snacks", "Smoking", "Alcohol", "Water", "Monitor", "Exercise", "Devices", "Transport",
	}, FeatureNames())

	names := make(map[string]bool)
	fields := make(map[string]bool)
	for _, attr := range Schema() {
		require.False(t, names[attr.Name], "duplicate attribute %s", attr.Name)
		require.False(t, fields[attr.FormField], "duplicate form field %s", attr.FormField)
		names[attr.Name] = true
		fields[attr.FormField] = true
		require.Equal(t, attr.Kind == Categorical, attr.Table != nil, attr.Name)
	}
}

func TestEncodingTablesAreStable(t *testing.T) {
	for _, attr := range Schema() {
		if attr.Kind != Categorical {
			continue
		}
		for want, value := range attr.Table.Values() {
			for i := 0; i < 3; i++ {
				code, ok := attr.Table.Code(value)
				require.True(t, ok, "%s: %q", attr.Name, value)
				require.Equal(t, want, code, "%s: %q", attr.Name, value)
			}
		}
	}
}

func TestEncodingTableFoldsCase(t *testing.T) {
	table := NewEncodingTable("Female", "Male")

	code, ok := table.Code("male")
	require.True(t, ok)
	require.Equal(t, 1, code)

	code, ok = table.Code("FEMALE")
	require.True(t, ok)
	require.Equal(t, 0, code)

	_, ok = table.Code("Other")
	require.False(t, ok)
}

func TestLookupAttribute(t *testing.T) {
	attr, ok := LookupAttribute(AttrHighCaloricFood)
	require.True(t, ok)
	require.Equal(t, "high_calorie", attr.FormField)
	require.Equal(t, Categorical, attr.Kind)

	_, ok = LookupAttribute("BMI")
	require.False(t, ok)
}
