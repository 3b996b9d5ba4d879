// Package interpret summarizes clusters as ranked attribute labels.
//
// For every attribute dimension, each cluster member spreads a weight of 1
// evenly over its labels in that dimension (1/m for m labels). A label's
// score is its accumulated weight divided by the cluster size, so scores lie
// in [0, 1] and a dimension's scores sum to the share of members labeled in
// it. Rankings are sorted by descending score, ties by label.
package interpret
