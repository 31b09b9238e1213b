package blockpress

// Stage identifies a step of one pipeline pass. It appears in [BlockError] so
// the caller knows which component rejected a block.
type Stage int

const (
	StageUnpack Stage = iota
	StageTransform
	StageEncode
	StageCompress
	StageDecompress
	StageDecode
	StageReverse
	StageVerify
)

var stageNames = [...]string{
	StageUnpack:     "unpack",
	StageTransform:  "transform",
	StageEncode:     "encode",
	StageCompress:   "compress",
	StageDecompress: "decompress",
	StageDecode:     "decode",
	StageReverse:    "reverse",
	StageVerify:     "verify",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown stage"
	}
	return stageNames[s]
}
