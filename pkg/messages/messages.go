package messages

const (
	// ErrUserErrorProcessing is the message sent to the user when an error occurs processing their interaction.
	ErrUserErrorProcessing = "Something went wrong processing that, please try again later"

	// ErrUserNotAuthorized is the message sent to the user when they lack the capability for a command.
	ErrUserNotAuthorized = "You are not authorized to use this command"

	// ErrUserAdminRequired is the message sent to the user when a command requires the administrator permission.
	ErrUserAdminRequired = "You must be an administrator to use this command"

	// ErrUserOwnerRequired is the message sent to the user when a command is restricted to the guild owner.
	ErrUserOwnerRequired = "Only the server owner can use this command"

	// ErrUserNotTicketChannel is the message sent to the user when a ticket command is used outside a ticket channel.
	ErrUserNotTicketChannel = "This is not a ticket channel"

	// ErrUserConfirmationTimeout is the message shown when an interactive confirmation expires.
	ErrUserConfirmationTimeout = "Confirmation timed out, nothing was changed"
)
