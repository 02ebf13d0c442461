package storage

import "fmt"

// Table name pattern and field names from the group manager schema.

const chainTable = "t_chain"

func metaTableName(chainID, groupID string) string {
	return fmt.Sprintf("t_meta_chain_%s_g_%s", chainID, groupID)
}

func nodeTableName(chainID, groupID string) string {
	return fmt.Sprintf("t_chain_%s_g_%s", chainID, groupID)
}

// t_chain fields.
const (
	fieldChainID = "chainID"
	fieldStatus  = "status"
	fieldInfos   = "infos"
)

// meta table fields/keys.
const (
	fieldMetaKey   = "key"
	fieldMetaValue = "value"

	metaKeyIni     = "ini"
	metaKeyGenesis = "genesis"
	metaKeyStatus  = "status"
)

// node table fields.
const (
	fieldNodeName       = "name"
	fieldNodeType       = "type"
	fieldNodeDeployInfo = "deploy_info"
	fieldNodeID         = "nodeID"
	fieldNodeConfig     = "config"
	fieldNodeStatus     = "status"
)
