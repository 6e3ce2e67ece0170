package nrpn

// Parameter addresses. The retrieved reference sources include the
// generator (VocaloidMidiEventListFactory.hpp) and the atomic NRPN model
// (NrpnEvent.cpp) but not the address table itself; the values below
// assign each named parameter a distinct slot in the 0x6000-0x6400 VOCALOID
// NRPN range in the same grouping the generator expects (one block per
// provider), and are recorded as an open-question resolution in
// DESIGN.md rather than ported from source.
const (
	// Byte/voice-type header, emitted once per track (or before the
	// first singer change if none is found at tick 0).
	ParamBSVersionAndDevice Param = 0x6000
	ParamBSDelay            Param = 0x6001
	ParamBSLanguageType     Param = 0x6002
	ParamPCVoiceType        Param = 0x6003

	// Note-message ("CVM_NM_*") block.
	ParamNMVersionAndDevice         Param = 0x6100
	ParamNMDelay                    Param = 0x6101
	ParamNMNoteNumber               Param = 0x6102
	ParamNMVelocity                 Param = 0x6103
	ParamNMNoteDuration             Param = 0x6104
	ParamNMNoteLocation             Param = 0x6105
	ParamNMIndexOfVibratoDB         Param = 0x6106
	ParamNMVibratoConfig            Param = 0x6107
	ParamNMVibratoDelay             Param = 0x6108
	ParamNMPhoneticSymbolBytes      Param = 0x6109
	ParamNMPhoneticSymbolFirst      Param = 0x6113 // + running byte index, see phoneticSymbolParam
	ParamNMPhoneticSymbolContinuation Param = 0x610a
	ParamNMNoteMessageContinuation  Param = 0x617f
	ParamNMV1Mean                   Param = 0x6150
	ParamNMD1Mean                   Param = 0x6151
	ParamNMD1MeanFirstNote          Param = 0x6152
	ParamNMD2Mean                   Param = 0x6153
	ParamNMD4Mean                   Param = 0x6154
	ParamNMPMeanOnsetFirstNote      Param = 0x6155
	ParamNMVMeanNoteTransition      Param = 0x6156
	ParamNMPMeanEndingNote          Param = 0x6157
	ParamNMAddPortamento            Param = 0x6158
	ParamNMChangeAfterPeak          Param = 0x6159
	ParamNMAccent                   Param = 0x615a
	ParamNMUnknown5011              Param = 0x6111 // DSB2-only flag of undocumented meaning, kept for parity

	// Vibrato depth/rate ("CC_VD_*"/"CC_VR_*") block.
	ParamVDVersionAndDevice Param = 0x6200
	ParamVRVersionAndDevice Param = 0x6201
	ParamVDDelay            Param = 0x6202
	ParamVRDelay            Param = 0x6203
	ParamVDVibratoDepth     Param = 0x6204
	ParamVRVibratoRate      Param = 0x6205

	// Pitch bend block.
	ParamPBDelay      Param = 0x6210
	ParamPBPitchBend  Param = 0x6211

	// Pitch bend sensitivity block.
	ParamPBSDelay                     Param = 0x6220
	ParamPBSPitchBendSensitivity      Param = 0x6221

	// Expression (DYN) block.
	ParamEDelay      Param = 0x6230
	ParamEExpression Param = 0x6231

	// FX2 depth block (DSB2 only).
	ParamFX2Delay        Param = 0x6240
	ParamFX2EffectDepth  Param = 0x6241

	// Voice-change-parameter ("VCP_*") block: a generic carrier for the
	// version-dependent curve set (BRE/BRI/CLE/POR/GEN/OPE and, on DSB2,
	// harmonics/reso1-4).
	ParamVCPDelay                Param = 0x6250
	ParamVCPVoiceChangeParamID   Param = 0x6251
	ParamVCPVoiceChangeParam     Param = 0x6252
)

// phoneticSymbolParam returns the address for the count-th phonetic
// symbol byte: ParamNMPhoneticSymbolFirst + count, inside the note-message
// block so that it shares the block's address MSB.
func phoneticSymbolParam(count int) Param {
	return ParamNMPhoneticSymbolFirst + Param(count)
}

// voiceChangeParameterID maps a curve name to the id value VOCALOID uses
// to select which voice-change parameter CC 0x06 carries; the ordering
// mirrors the curve lists built in generateVoiceChangeParameterNRPN.
var voiceChangeParameterID = map[string]int{
	"bre": 0x02, "bri": 0x03, "cle": 0x04, "por": 0x05, "ope": 0x06, "gen": 0x07,
	"harmonics": 0x08, "fx2depth": 0x09,
	"reso1amp": 0x0a, "reso1bw": 0x0b, "reso1freq": 0x0c,
	"reso2amp": 0x0d, "reso2bw": 0x0e, "reso2freq": 0x0f,
	"reso3amp": 0x10, "reso3bw": 0x11, "reso3freq": 0x12,
	"reso4amp": 0x13, "reso4bw": 0x14, "reso4freq": 0x15,
}
