package curriculum

// Built-in K-2 tracks. Lessons and exercises of a quarter are separate tracks
// so each is gated on its own sequence.
const (
	TrackQ1NumberSense          = "Q1-NumberSense"
	TrackQ1NumberSenseExercises = "Q1-NumberSense-Exercises"
	TrackQ2AddSub               = "Q2-AdditionSubtraction"
	TrackQ2AddSubExercises      = "Q2-AdditionSubtraction-Exercises"
)

// Default returns the built-in K-2 mathematics curriculum.
func Default() *Curriculum {
	var units []Unit
	add := func(track string, kind Kind, items [][2]string) {
		for i, it := range items {
			units = append(units, Unit{
				ID:      it[0],
				Kind:    kind,
				Ordinal: i,
				Track:   track,
				Title:   it[1],
				Points:  kind.DefaultPoints(),
			})
		}
	}

	add(TrackQ1NumberSense, KindLesson, [][2]string{
		{"lesson1", "Counting & Number Visualization (0–100)"},
		{"lesson2", "Ordering Numbers (0–100)"},
		{"lesson3", "Comparing Numbers Using >, <, ="},
		{"lesson4", "Ordinal Numbers (1st–10th)"},
		{"lesson5", "Place Value & Renaming Numbers"},
		{"lesson6", "Skip Counting by 2s, 5s, 10s"},
		{"lesson7", "Money Recognition (Coins & Bills)"},
	})
	add(TrackQ1NumberSenseExercises, KindExercise, [][2]string{
		{"exercise1", "Counting Exercise"},
		{"exercise2", "Ordering Exercise"},
		{"exercise3", "Comparing Numbers Exercise"},
		{"exercise4", "Ordinal Numbers Exercise"},
		{"exercise5", "Place Value Exercise"},
		{"exercise6", "Skip Counting Exercise"},
		{"exercise7", "Money Exercise"},
	})
	add(TrackQ2AddSub, KindLesson, [][2]string{
		{"q2-addition", "Addition"},
		{"q2-subtraction", "Subtraction"},
		{"q2-inverse-operations", "Inverse Operations"},
		{"q2-money", "Money: Adding & Subtracting Amounts"},
		{"q2-word-problems", "Word Problems"},
	})
	add(TrackQ2AddSubExercises, KindExercise, [][2]string{
		{"q2-subtraction-exercise", "Subtraction Exercise"},
		{"q2-inverse-operations-exercise", "Inverse Operations Exercise"},
		{"q2-money-exercise", "Money Exercise"},
	})

	c, err := New(units)
	if err != nil {
		// The table above is static; a failure here is a programming error.
		panic("curriculum: invalid built-in curriculum: " + err.Error())
	}
	return c
}
