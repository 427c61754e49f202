// Package fileserver moves uploaded images into a user's managed image tree.
//
// Ingestor.MoveUploadedFile validates an upload, expands supported archives
// into a collision-free folder, and places plain images under a
// collision-free name. Names are claimed with exclusive-create primitives
// (mkdir, no-replace rename) so concurrent uploads with the same body name
// never overwrite each other; each upload tries the plain name and then up to
// 1000 numeric suffixes before giving up.
//
// Archive expansion shells out to the commands configured under
// [ingest.archives]; recognized image formats come from the queue store.
package fileserver
