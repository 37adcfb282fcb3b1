package models

// AllModels lists every table the service migrates.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Test{},
		&Question{},
		&TestResult{},
		&QuestionReport{},
		&Chat{},
	}
}
