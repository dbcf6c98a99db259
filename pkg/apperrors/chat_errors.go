package apperrors

var (
	ErrUserNotFound    = NotFound("user not found")
	ErrRoomNotFound    = NotFound("chat room not found")
	ErrMessageNotFound = NotFound("message not found")

	ErrNotParticipant   = Forbidden("you are not a participant of this chat room")
	ErrInsufficientRole = Forbidden("you do not have permission to perform this action")
	ErrNotMessageSender = Forbidden("you can only edit your own messages")
	ErrOnlyCreator      = Forbidden("only the creator can perform this action")

	ErrContentRequired = InvalidArg("message content is required when no files are attached")
	ErrInvalidRole     = InvalidArg("role must be one of member, moderator, admin")
	ErrReplyNotFound   = InvalidArg("reply target message not found in this chat room")
	ErrSelfPrivateChat = InvalidArg("cannot create a private chat with yourself")

	ErrEditWindowExpired = FailedPrecondition("message is too old to edit")
	ErrNotGroupRoom      = FailedPrecondition("operation only applies to group rooms")

	ErrCannotRemoveCreator = Conflict("cannot remove the creator of the chat room")
	ErrCannotDemoteCreator = Conflict("cannot change the creator's role")
	ErrCreatorCannotLeave  = Conflict("creator cannot leave; delete the room instead")
	ErrSelfRemoval         = Conflict("use leave to remove yourself")
	ErrNotAMember          = Conflict("user is not a member of this chat room")
	ErrAlreadyDeleted      = Conflict("message is already deleted")
)
