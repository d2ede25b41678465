package wizard

import "github.com/atozfamily/homescholar/internal/curriculum"

// Option is one choice of a select input. Value is what the form submits.
type Option struct {
	Value string
	Label string
}

var Subjects = []Option{
	{"Math", "Math"},
	{"Science", "Science"},
	{"English Language Arts", "English Language Arts"},
	{"History", "History"},
	{"Geography", "Geography"},
	{"Art", "Art"},
	{"Music", "Music"},
	{"Foreign Language", "Foreign Language"},
	{"Computer Science", "Computer Science"},
}

var Grades = []Option{
	{"K", "Kindergarten"},
	{"1", "Grade 1"},
	{"2", "Grade 2"},
	{"3", "Grade 3"},
	{"4", "Grade 4"},
	{"5", "Grade 5"},
	{"6", "Grade 6"},
	{"7", "Grade 7"},
	{"8", "Grade 8"},
	{"9", "Grade 9"},
	{"10", "Grade 10"},
	{"11", "Grade 11"},
	{"12", "Grade 12"},
}

var LearningStyles = []Option{
	{"Balanced", "Balanced"},
	{"Visual", "Visual"},
	{"Auditory", "Auditory"},
	{"Kinesthetic", "Kinesthetic (hands-on)"},
	{"Reading/Writing", "Reading/Writing"},
}

// Durations lists the curriculum lengths by label, which is what the
// profile form submits.
func Durations() []Option {
	out := make([]Option, 0, len(curriculum.Durations))
	for _, d := range curriculum.Durations {
		out = append(out, Option{Value: d.Label, Label: d.Label})
	}
	return out
}

// Options returns the choices for f, or nil for free-text fields.
func Options(f Field) []Option {
	switch f {
	case FieldSubject:
		return Subjects
	case FieldGrade:
		return Grades
	case FieldDuration:
		return Durations()
	case FieldLearningStyle:
		return LearningStyles
	}
	return nil
}

// Label returns the display label of value among f's options, or value
// itself when f is free text or value is not listed.
func Label(f Field, value string) string {
	for _, o := range Options(f) {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
