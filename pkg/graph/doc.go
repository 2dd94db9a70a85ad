// Package graph derives the face adjacency relation of a mesh (faces that
// share an edge, i.e. two or more vertex indices) and partitions the faces
// into maximal connected components.
package graph
