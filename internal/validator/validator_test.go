package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registration struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,user_role"`
	Name  string `json:"name" validate:"not_blank"`
	Pick  int    `json:"pick" validate:"option_index"`
}

type draft struct {
	Title   string   `json:"title"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct int      `json:"correct"`
}

func (d draft) ValidateBusiness(v *Validator) ValidationErrors {
	errs := v.Question().ValidateTest(d.Title, 1)
	return append(errs, v.Question().ValidateQuestion(0, d.Text, d.Options, d.Correct)...)
}

func TestValidateStructTags(t *testing.T) {
	v := New()

	err := v.Validate(registration{Email: "bad", Role: "admin", Name: "  ", Pick: 4})
	require.Error(t, err)

	errs, ok := err.(ValidationErrors)
	require.True(t, ok)

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Rule
	}
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "user_role", fields["role"])
	assert.Equal(t, "not_blank", fields["name"])
	assert.Equal(t, "option_index", fields["pick"])

	assert.NoError(t, v.Validate(registration{Email: "a@b.co", Role: "teacher", Name: "Ann", Pick: 3}))
}

func TestValidateBusinessRules(t *testing.T) {
	v := New()

	t.Run("valid question", func(t *testing.T) {
		assert.NoError(t, v.Validate(draft{Title: "Quiz", Text: "2+2?", Options: []string{"3", "4"}, Correct: 1}))
	})

	t.Run("missing title", func(t *testing.T) {
		err := v.Validate(draft{Text: "2+2?", Options: []string{"3", "4"}, Correct: 1})
		require.Error(t, err)
		assert.Equal(t, "title", err.(ValidationErrors)[0].Field)
	})

	t.Run("one option is not enough", func(t *testing.T) {
		err := v.Validate(draft{Title: "Quiz", Text: "2+2?", Options: []string{"4", " "}, Correct: 0})
		require.Error(t, err)
		assert.Equal(t, "questions[0].options", err.(ValidationErrors)[0].Field)
	})

	t.Run("correct option must not be blank", func(t *testing.T) {
		err := v.Validate(draft{Title: "Quiz", Text: "2+2?", Options: []string{"3", "4", ""}, Correct: 2})
		require.Error(t, err)
		assert.Equal(t, "not_blank", err.(ValidationErrors)[0].Rule)
	})

	t.Run("too many options", func(t *testing.T) {
		err := v.Validate(draft{Title: "Quiz", Text: "?", Options: []string{"a", "b", "c", "d", "e"}, Correct: 0})
		require.Error(t, err)
		assert.Equal(t, "max", err.(ValidationErrors)[0].Rule)
	})
}

func TestNormalizeOptions(t *testing.T) {
	assert.Equal(t, []string{"a", "", "c"}, NormalizeOptions([]string{" a ", "", "c", " "}))
	assert.Empty(t, NormalizeOptions([]string{"", " "}))
}
