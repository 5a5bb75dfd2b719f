// Package graph defines the face adjacency graph of a triangle mesh.
// Faces are connected through undirected edges whose endpoints are compared
// exactly, so two faces are neighbours only when they share both vertices
// bit for bit.
package graph
