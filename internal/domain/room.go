package domain

// RoomName keys a named group of connections that negotiate WebRTC
// connections with each other. Rooms are created lazily on first join.
type RoomName string
