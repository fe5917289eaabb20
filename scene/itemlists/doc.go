// Package itemlists provides building blocks for scene item lists.
//
// Entries is the sorted, lazily compacted storage most lists keep their
// per-occurrence data in. FuncList turns closures into a list, which is
// convenient for lists that only draw. TransformList tracks the world
// transform of every node of one type and draws one labelled command per
// entry; it is also reusable across scene rebuilds.
package itemlists
