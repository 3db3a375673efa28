package escalation

import "fmt"

// The source app rotates through a fixed set of increasingly insistent
// messages; the rotation keeps repeated notifications from reading as
// duplicates and being collapsed by the platform.
var urgencyMessages = []string{
	"Time to take %s!",
	"Urgent: %s is still waiting!",
	"You have not taken %s yet!",
	"Top priority: please take %s now!",
	"Don't forget %s!",
}

func urgencyMessage(medicineName string, seq int) string {
	return fmt.Sprintf(urgencyMessages[seq%len(urgencyMessages)], medicineName)
}
