package ml

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const csvHeader = "Gender,Age,Height,Weight,FamilyHistory,HighCaloricFood,Vegetables,MainMeals,Snacks,Smoking,Alcohol,Water,Monitor,Exercise,Devices,Transport,label"

func csvRow(gender string, weight float64, label string) string {
	return fmt.Sprintf("%s,25,170,%g,yes,no,sometimes,3,sometimes,no,no,1-2L,no,1-2 days,0-2 hours,public,%s", gender, weight, label)
}

func TestReadTrainingCSV(t *testing.T) {
	data := strings.Join([]string{
		csvHeader,
		csvRow("Male", 50, "insufficient_weight"),
		csvRow("Female", 120, "obesity_type_II"),
	}, "\n")

	set, err := ReadTrainingCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, set.Vectors, 2)
	require.Equal(t, []string{"insufficient_weight", "obesity_type_II"}, set.Labels)
	require.Equal(t, 1.0, set.Vectors[0][0])
	require.Equal(t, 120.0, set.Vectors[1][3])
}

func TestReadTrainingCSVErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{"no label column", strings.TrimSuffix(csvHeader, ",label") + "\n", `"label"`},
		{"no rows", csvHeader + "\n", "no rows"},
		{"bad category", csvHeader + "\n" + csvRow("Other", 70, "normal_weight"), "line 2"},
		{"empty label", csvHeader + "\n" + csvRow("Male", 70, ""), "empty label"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadTrainingCSV(strings.NewReader(tc.data))
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestTrainArtifacts(t *testing.T) {
	rows := []string{csvHeader}
	for i := 0; i < 5; i++ {
		rows = append(rows,
			csvRow("Male", 45+float64(i), "insufficient_weight"),
			csvRow("Female", 68+float64(i), "normal_weight"),
			csvRow("Male", 130+float64(i), "obesity_type_III"),
		)
	}
	set, err := ReadTrainingCSV(strings.NewReader(strings.Join(rows, "\n")))
	require.NoError(t, err)

	artifacts, err := TrainArtifacts(set, 4, "train-test")
	require.NoError(t, err)
	require.Equal(t, []string{"insufficient_weight", "normal_weight", "obesity_type_III"}, artifacts.Encoders.Label)
	require.Equal(t, "train-test", artifacts.Info.Version)

	for i, vector := range set.Vectors {
		prediction, err := Infer(artifacts, vector)
		require.NoError(t, err)
		require.Equal(t, set.Labels[i], prediction.Label, "row %d", i)
	}

	dir := t.TempDir()
	require.NoError(t, artifacts.Save(dir))
	loaded, err := LoadArtifacts(dir)
	require.NoError(t, err)
	require.Equal(t, artifacts.Encoders.Label, loaded.Encoders.Label)
}

func TestTrainArtifactsEmpty(t *testing.T) {
	_, err := TrainArtifacts(&TrainingSet{}, 3, "")
	require.Error(t, err)
}

func TestSplitAndAccuracy(t *testing.T) {
	set := &TrainingSet{}
	for i := 0; i < 10; i++ {
		vector := make([]float64, FeatureCount)
		vector[3] = float64(40 + i*10)
		set.Vectors = append(set.Vectors, vector)
		label := "normal_weight"
		if i >= 5 {
			label = "obesity_type_I"
		}
		set.Labels = append(set.Labels, label)
	}

	train, test := set.Split(0.3, 7)
	require.Len(t, train.Vectors, 7)
	require.Len(t, test.Vectors, 3)
	require.Len(t, train.Labels, 7)

	again, _ := set.Split(0.3, 7)
	require.Equal(t, train.Labels, again.Labels, "same seed, same split")

	artifacts, err := TrainArtifacts(set, 3, "acc")
	require.NoError(t, err)
	accuracy, err := Accuracy(artifacts, set)
	require.NoError(t, err)
	require.Equal(t, 1.0, accuracy)

	_, err = Accuracy(artifacts, &TrainingSet{})
	require.Error(t, err)
}
