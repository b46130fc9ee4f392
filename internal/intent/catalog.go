package intent

import "fmt"

// functionCatalog is the fixed list of callable intents embedded in every
// classification prompt. Each entry documents the expected parameters (all
// optional, defaulting to None when the user does not mention them) and gives
// a few example utterances so the model can route reliably.
const functionCatalog = `
Function:
def user_intent_ec2_type_selection(cpu=None, ram=None):
    """
    Finds the most suitable AWS EC2 instance type given user specified cpu and ram requirements.

    Args:
    - cpu (optional int): The desired number of CPU cores.
    - ram (optional float): The desired amount of RAM in gigabytes.

    Examples: '2 ram and 1 cpu', '3 cpu', '4 ram'
    """

Function:
def user_intent_confirm():
    """
    Checks if user wants to proceed with deployment.
    Suitable if user answers in the affirmative that the deployment looks good.
    The function takes no arguments.
    Examples: 'yes' or 'looks good'
    """

Function:
def user_intent_enable_autoscaling():
    """
    Function called when user wants to enable autoscaling for the deployment.
    The function takes no arguments.
    Examples: 'enable autoscaling' or 'autoscaling'
    """

Function:
def user_intent_display_current_deployment_config():
    """
    Displays current deployment settings. Ran if user asks to see current config.
    The function takes no arguments.
    Examples: 'show config' or 'display deployment settings' or 'display current config'
    """

Function:
def user_intent_modify_ec2_config(InstanceType=None, ImageId=None, MinCount=None, MaxCount=None):
    """
    Function called when user wants to modify the current ec2 config.
    In many instances, only one parameter will be modified and the rest will be None.
    In others, the user may specify more than one parameter. The ones not specified will be None.
    In some instances, all parameters may be None if user specifies a parameter that doesn't exist.

    Args:
    - InstanceType (optional str): The desired instance type.
    - ImageId (optional str): The desired image ID.
    - MinCount (optional int): The desired minimum number of instances.
    - MaxCount (optional int): The desired maximum number of instances.

    Examples: 'change ec2 min count to 3', 'modify max count to 5', 'change instance type to t3.large'
    """

Function:
def user_intent_modify_as_config(LaunchTemplateName=None, VPCZoneIdentifier=None, AvailabilityZones=None, MinSize=None, MaxSize=None, DesiredCapacity=None):
    """
    Function called when user wants to modify the current autoscaling config.
    In many instances, only one parameter will be modified and the rest will be None.
    In others, the user may specify more than one parameter. The ones not specified will be None.
    In some instances, all parameters may be None if user specifies a parameter that doesn't exist.

    Args:
    - LaunchTemplateName (optional str): The desired launch template name.
    - VPCZoneIdentifier (optional str): The desired VPC zone identifier.
    - AvailabilityZones (optional list of str): The desired availability zones.
    - MinSize (optional int): The desired minimum number of instances.
    - MaxSize (optional int): The desired maximum number of instances.
    - DesiredCapacity (optional int): The desired number of instances.

    Examples: 'change autoscaling min size to 3', 'modify max size to 6', 'change desired capacity to 5',
    'change availability zones to us-east-1a and us-east-1b', 'set launch template name to test'
    """

Function:
def user_intent_out_of_scope():
    """
    Call this function if user query doesn't relate to any other function call defined above.
    Do not use to fill in for other function parameters.
    The function takes no arguments.
    Example: 'Hello' or 'what's the capital of France'
    """
`

const promptTemplate = `<human>

%s

Conversation History:
%s

Current User Query: %s
<human_end>
`

// BuildPrompt assembles the classification prompt: the function catalog, the
// rendered conversation history, and the current user query.
func BuildPrompt(query string, history []Turn) string {
	return fmt.Sprintf(promptTemplate, functionCatalog, FormatTranscript(history), query)
}
