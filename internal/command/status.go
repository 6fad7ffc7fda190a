package command

// exitCodeFromStatus decodes a raw POSIX wait status the way WIFEXITED and
// WEXITSTATUS do. Any abnormal termination (signal, stop) yields -1.
func exitCodeFromStatus(status uint32) int {
	if status&0x7f == 0 {
		return int((status >> 8) & 0xff)
	}
	return -1
}
