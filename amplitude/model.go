// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package amplitude

import (
	"bytes"
	_ "embed"

	"github.com/SnellerInc/semlayer/model"
)

//go:embed amplitude.yaml
var modelText []byte

// ModelFile is the name of the embedded
// definition returned by Model.
const ModelFile = "amplitude.yaml"

// Model returns the declarative form of the
// sessions and users entities. Building it with
// model.Build yields the same definitions as Registry.
func Model() (*model.Model, error) {
	return model.Decode(bytes.NewReader(modelText), model.YAML)
}

// ModelText returns the YAML text of Model.
func ModelText() []byte { return bytes.Clone(modelText) }
