// Package detection defines the per-frame detection mapping the transition
// rules consume and the clients for remote object detectors.
//
// The detector itself is external. HTTPDetector uploads frames as multipart
// forms; WebsocketDetector keeps a persistent connection and exchanges one
// binary frame for one JSON reply. Both decode the same Response shape and
// apply a defensive confidence filter before handing a Set to the engine.
package detection
