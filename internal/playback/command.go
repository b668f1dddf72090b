package playback

// Command is a message posted to the embedded player, in the player's own
// wire format.
type Command struct {
	Event string `json:"event"`
	Func  string `json:"func"`
	Args  string `json:"args"`
}

// PauseCommand asks the player to pause.
func PauseCommand() Command {
	return Command{Event: "command", Func: "pauseVideo", Args: ""}
}
