// SPDX-License-Identifier: MPL-2.0

package broken

func New( {
