package classifier

import (
	"fmt"
	"strings"
)

const (
	replyAlreadyFixed = "This has already been addressed in the current code. Thanks for the review!"
	replyWillAddress  = "Thanks for the suggestion! Will address this."
)

func constReply(s string) func(input) string {
	return func(input) string { return s }
}

func replyUnusedImport(in input) string {
	if len(in.names) == 0 {
		return "Good catch! Will remove the unused import."
	}
	quoted := make([]string, len(in.names))
	for i, n := range in.names {
		quoted[i] = fmt.Sprintf("`%s`", n)
	}
	return fmt.Sprintf("Good catch! Will remove unused import(s): %s", strings.Join(quoted, ", "))
}
