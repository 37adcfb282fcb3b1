package cache

import "fmt"

func TestStatisticsKey(testID string) string {
	return fmt.Sprintf("stats:test:%s", testID)
}

func StudentProgressKey(studentID string) string {
	return fmt.Sprintf("stats:student:%s", studentID)
}

// StudentProgressPattern matches every StudentProgressKey.
func StudentProgressPattern() string {
	return "stats:student:*"
}
