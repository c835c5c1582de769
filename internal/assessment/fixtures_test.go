package assessment

func biologyTest() Test {
	return Test{
		ID:             "bio-quiz-1",
		CourseID:       "bio-101",
		Title:          "Cells",
		DurationMin:    15,
		MaxAttempts:    2,
		PassPercentage: 50,
		Published:      true,
		Questions: []Question{
			{Text: "Powerhouse of the cell?", Points: 5, Body: SingleChoice{Options: []Option{
				{Text: "Mitochondria", Correct: true}, {Text: "Ribosome"},
			}}},
			{Text: "Name the organelle", Points: 5, Explanation: "It makes ATP.",
				Body: ShortAnswer{Reference: "mitochondria"}},
			{Text: "Pick the eukaryotes", Points: 4, Body: MultipleChoice{Options: []Option{
				{Text: "Yeast", Correct: true}, {Text: "E. coli"}, {Text: "Amoeba", Correct: true},
			}}},
			{Text: "Cells have membranes", Points: 1, Body: TrueFalse{Options: []Option{
				{Text: "True", Correct: true}, {Text: "False"},
			}}},
		},
	}
}
