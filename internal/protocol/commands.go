package protocol

// Wire command names.
const (
	CmdPing          = "ping"
	CmdCapabilities  = "capabilities"
	CmdFileList      = "file_list"
	CmdFileGet       = "file_get"
	CmdFilePut       = "file_put"
	CmdFileMkdir     = "file_mkdir"
	CmdFileDelete    = "file_delete"
	CmdFileRename    = "file_rename"
	CmdHIDKey        = "hid_key"
	CmdHIDPress      = "hid_press"
	CmdUnlock        = "unlock"
	CmdLocationSet   = "location_set"
	CmdLocationClear = "location_clear"
	CmdDevModeStatus = "devmode_status"
	CmdDevModeArm    = "devmode_arm"
)
