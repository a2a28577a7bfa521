// Package pose defines the per-frame joint updates sent to the host and the
// orientation encoding they carry.
package pose

// Channel names the kind of value set on a joint.
type Channel string

const (
	LocalRotation Channel = "local_rot" // Rotation relative to the parent joint
	Rotation      Channel = "rot"       // Rotation in avatar frame
	Position      Channel = "pos"       // Position in avatar frame
	Scale         Channel = "scale"
)

// Update maps a joint name to the channels being set on it, e.g.
//
//	{"mHead": {"local_rot": [x, y, z]}}
//
// An Update is built fresh for every frame and handed off; nothing keeps it.
type Update map[string]map[Channel]Packed

// Set stores v for joint on channel.
func (u Update) Set(joint string, ch Channel, v Packed) {
	channels, ok := u[joint]
	if !ok {
		channels = make(map[Channel]Packed, 1)
		u[joint] = channels
	}
	channels[ch] = v
}

// Get returns the value for joint on channel.
func (u Update) Get(joint string, ch Channel) (Packed, bool) {
	v, ok := u[joint][ch]
	return v, ok
}

// Joints returns the number of joints touched by u.
func (u Update) Joints() int {
	return len(u)
}

// LocalRotationUpdate builds the single-joint update the head animations emit.
func LocalRotationUpdate(joint string, rot Packed) Update {
	return Update{joint: {LocalRotation: rot}}
}
