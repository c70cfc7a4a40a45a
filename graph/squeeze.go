/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package graph

// Squeeze removes the broadcastable axes of x. The output is a view of x, or x itself if it has no broadcastable
// axes.
func Squeeze(x *Node) *Node {
	var drop []int
	for axis, broadcastable := range x.outputType.Broadcastable {
		if broadcastable {
			drop = append(drop, axis)
		}
	}
	if len(drop) == 0 {
		return x
	}
	return DimShuffle(x, drop...)
}
