// Package compression provides the general-purpose byte compressors that run
// over a coder's output as the last stage of the pipeline.
//
// Most of them are thin wrappers around existing libraries, all set to their
// highest compression level: the DEFLATE family (raw, zlib and gzip framing),
// Zstandard, LZ4 and xz. Coded blocks are only a few KiB, so the slowest
// settings cost almost nothing and give the fairest comparison.
//
// Two run-length encodings are implemented here. The first is the one used by
// the Microsoft BMP file format, also known as RLE8. A brief explanation: if a
// byte B occurs N times where N >= 2, B is written twice, followed by a third
// (unsigned) byte indicating how many additional times B occurred. For example:
//
//	WXXXXXXXXXXXXXXXYZZ
//	W XX 13 Y ZZ 0
//
// This scheme lets us represent runs of up to 257 bytes with three bytes. For
// runs longer than 257 bytes, they are treated as separate runs. For example,
// a run of 300 "X" is represented as `XX 255 XX 41`. Unfortunately, using a byte
// as its own escape sequence means that occurrences of the same byte exactly
// twice are stored as three bytes: the two bytes followed by a null byte
// indicating no further repetition.
//
// Bytewise-coded blocks of a uniform section are long runs of one byte, and
// RLE8 followed by gzip collapses those far better than gzip alone.
//
// The second is RLE90, which spends a dedicated marker byte (0x90) instead. It
// never expands runs of two and is cheap on data that rarely contains 0x90.
package compression
