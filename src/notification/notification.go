// Package notification shows modal dialogs for conditions the user must see.
package notification

// Title is used for every dialog the app raises.
const Title = "Screen Translate"

// Fatal reports a startup failure the app cannot continue from.
func Fatal(message string) {
	ShowBlockingError(Title, message+"\n\nThe application will now exit.")
}
