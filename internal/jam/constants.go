// Package jam implements the JAM message base format (JAM-001).
//
// A base is four files sharing one extension-less path: .jhr (base header and
// message headers), .jdt (message text), .jdx (index) and .jlr (lastread).
// Files are opened per operation; a *Base never holds a file handle between calls.
package jam

// JAM file format constants
const (
	Signature       = "JAM\x00"
	HeaderSize      = 1024 // Fixed header occupies first 1024 bytes of .jhr
	BaseInfoSize    = 24   // Structured data within the fixed header
	FixedHeaderSize = 76   // Fixed part of a message header
	SubfieldHdrSize = 8    // LoID(2) + HiID(2) + DatLen(4)
	IndexRecordSize = 8    // ToCRC(4) + HdrOffset(4)
	LastReadSize    = 16   // UserCRC(4) + UserID(4) + LastReadMsg(4) + HighReadMsg(4)

	// CRCSentinel marks an absent password or recipient. It is also the
	// checksum of the empty string.
	CRCSentinel = 0xFFFFFFFF

	// Revision is the only message header revision this package understands.
	Revision = 1

	// counterOffset is where ModCounter starts inside the fixed header;
	// ActiveMsgs follows it.
	counterOffset = 8
)

// File extensions of the four files making up a base.
const (
	ExtHeader   = ".jhr"
	ExtText     = ".jdt"
	ExtIndex    = ".jdx"
	ExtLastRead = ".jlr"
	ExtLock     = ".bsy"
)

// Message attribute flags (JAM-001)
const (
	MsgLocal       = 0x00000001 // Created locally
	MsgInTransit   = 0x00000002 // In-transit
	MsgPrivate     = 0x00000004 // Private message
	MsgRead        = 0x00000008 // Read by addressee
	MsgSent        = 0x00000010 // Sent to remote
	MsgKillSent    = 0x00000020 // Kill when sent
	MsgArchiveSent = 0x00000040 // Archive when sent
	MsgHold        = 0x00000080 // Hold for pick-up
	MsgCrash       = 0x00000100 // Crash
	MsgImmediate   = 0x00000200 // Send immediately
	MsgDirect      = 0x00000400 // Send directly
	MsgGate        = 0x00000800 // Send via gateway
	MsgFileRequest = 0x00001000 // File request
	MsgFileAttach  = 0x00002000 // File(s) attached
	MsgTruncFile   = 0x00004000 // Truncate file(s)
	MsgKillFile    = 0x00008000 // Delete file(s)
	MsgReceiptReq  = 0x00010000 // Return receipt requested
	MsgConfirmReq  = 0x00020000 // Confirmation receipt requested
	MsgOrphan      = 0x00040000 // Unknown destination
	MsgEncrypt     = 0x00080000 // Encrypted (reserved, never acted upon)
	MsgCompress    = 0x00100000 // Compressed (reserved, never acted upon)
	MsgEscaped     = 0x00200000 // Seven bit ASCII (reserved, never acted upon)
	MsgFPU         = 0x00400000 // Force pickup
	MsgTypeLocal   = 0x00800000 // Local use only
	MsgTypeEcho    = 0x01000000 // Conference/echo mail
	MsgTypeNet     = 0x02000000 // Direct network mail
	MsgNoDisp      = 0x20000000 // May not be displayed
	MsgLocked      = 0x40000000 // Locked
	MsgDeleted     = 0x80000000 // Deleted
)

// Subfield type identifiers (JAM-001)
const (
	SfldOAddress             = 0    // Origin network address
	SfldDAddress             = 1    // Destination network address
	SfldSenderName           = 2    // Sender name
	SfldReceiverName         = 3    // Receiver name
	SfldMsgID                = 4    // Message ID (FTN MSGID)
	SfldReplyID              = 5    // Reply ID (FTN REPLY)
	SfldSubject              = 6    // Subject
	SfldPID                  = 7    // Program ID
	SfldTrace                = 8    // Trace info
	SfldEnclosedFile         = 9    // Attached file
	SfldEnclosedFileWAlias   = 10   // Attached file with alias
	SfldEnclosedFreq         = 11   // File request
	SfldEnclosedFileWCard    = 12   // Attached file by wildcard
	SfldEnclosedIndirectFile = 13   // Attached file list
	SfldEmbInDat             = 1000 // Embedded binary data
	SfldFTSKludge            = 2000 // FTN kludge line
	SfldSeenBy2D             = 2001 // SEEN-BY in 2D format
	SfldPath2D               = 2002 // PATH in 2D format
	SfldFlags                = 2003 // Message flags
	SfldTZUTCInfo            = 2004 // Timezone/UTC info
)
